// Package label normalizes draw.io cell labels.
//
// draw.io stores labels of cells with html=1 in their style as HTML fragments, e.g.
// "<b>Order</b><br>+ total(): int". Text flattens those to the visible text so labels
// can be compared against each other.
package label

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Text returns the visible text of raw with whitespace collapsed and trimmed.
// Line breaks (<br>, <div>, <p>) become single spaces.
func Text(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapse(raw)
	}
	if !strings.Contains(raw, "<") {
		return collapse(html.UnescapeString(raw))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapse(html.UnescapeString(raw))
	}
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("div, p, li").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return collapse(doc.Text())
}

// Lines returns the visible lines of raw. Class shapes often list several members in one
// cell separated by line breaks.
func Lines(raw string) []string {
	if !strings.Contains(raw, "<") {
		return splitLines(html.UnescapeString(raw))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return splitLines(html.UnescapeString(raw))
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("div, p, li").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return splitLines(doc.Text())
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		l = collapse(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
