// Package xhttp implements the http helpers of the watch server.
package xhttp

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"oss.terrastruct.com/xcontext"
)

// NewServer returns a server for h with bounded header and body sizes.
func NewServer(log *log.Logger, h http.Handler) *http.Server {
	return &http.Server{
		MaxHeaderBytes: 1 << 18, // 262,144B
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		IdleTimeout:    time.Hour,
		ErrorLog:       log,
		Handler:        http.MaxBytesHandler(h, 1<<20), // 1,048,576B
	}
}

// Listen listens on host:port over TCP. An empty host means localhost and an empty port a
// random free one.
func Listen(host, port string) (net.Listener, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "0"
	}
	return net.Listen("tcp", net.JoinHostPort(host, port))
}

// Serve serves s on l until ctx is done, then shuts down, giving in-flight requests up to
// shutdownTimeout. Request contexts derive from ctx.
func Serve(ctx context.Context, shutdownTimeout time.Duration, s *http.Server, l net.Listener) error {
	s.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(l)
	}()

	select {
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		ctx = xcontext.WithoutCancel(ctx)
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	}
}
