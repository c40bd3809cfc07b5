// Package go2 contains general utility helpers that should've been in Go. Maybe they'll be in Go 2.0.
package go2

import (
	"golang.org/x/exp/constraints"
)

func Pointer[T any](v T) *T {
	return &v
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// OrderedSet is a set that remembers insertion order.
type OrderedSet[T comparable] struct {
	idx  map[T]int
	keys []T
}

func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{idx: make(map[T]int)}
}

// Add reports whether el was added.
func (s *OrderedSet[T]) Add(el T) bool {
	if _, ok := s.idx[el]; ok {
		return false
	}
	s.idx[el] = len(s.keys)
	s.keys = append(s.keys, el)
	return true
}

// Remove reports whether el was present.
func (s *OrderedSet[T]) Remove(el T) bool {
	i, ok := s.idx[el]
	if !ok {
		return false
	}
	delete(s.idx, el)
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	for j := i; j < len(s.keys); j++ {
		s.idx[s.keys[j]] = j
	}
	return true
}

func (s *OrderedSet[T]) Has(el T) bool {
	_, ok := s.idx[el]
	return ok
}

func (s *OrderedSet[T]) Len() int {
	return len(s.keys)
}

// Values returns a copy of the elements in insertion order.
func (s *OrderedSet[T]) Values() []T {
	out := make([]T, len(s.keys))
	copy(out, s.keys)
	return out
}
