package xmain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"
)

// TestState runs a RunFunc in-process the way Main would, with logs going to the test.
type TestState struct {
	Run  RunFunc
	Env  *xos.Env
	Args []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	sigs chan os.Signal
	done chan error
	err  error
	ran  bool
}

func (ts *TestState) Start(tb testing.TB, ctx context.Context) {
	tb.Helper()
	if ts.done != nil {
		tb.Fatal("xmain.TestState.Start called twice")
	}

	name := ""
	args := ts.Args
	if len(args) > 0 {
		name = args[0]
		args = args[1:]
	}
	if ts.Env == nil {
		ts.Env = xos.NewEnv(nil)
	}
	if ts.Stdin == nil {
		ts.Stdin = bytes.NewReader(nil)
	}
	if ts.Stdout == nil {
		ts.Stdout = io.Discard
	}
	if ts.Stderr == nil {
		ts.Stderr = io.Discard
	}

	ms := &State{
		Name: name,

		Stdin:  ts.Stdin,
		Stdout: nopWriteCloser{ts.Stdout},
		Stderr: nopWriteCloser{ts.Stderr},

		Env: ts.Env,
	}
	ms.Log = cmdlog.NewTB(ms.Env, tb)
	ms.Opts = NewOpts(ms.Env, ms.Log, args)

	ts.sigs = make(chan os.Signal, 1)
	ts.done = make(chan error, 1)
	go func() {
		ts.done <- ms.Main(ctx, ts.sigs, ts.Run)
	}()
}

// Wait returns the error of the RunFunc once it returns.
func (ts *TestState) Wait(ctx context.Context) error {
	if ts.ran {
		return ts.err
	}
	select {
	case err := <-ts.done:
		ts.ran = true
		ts.err = err
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signal delivers sig as if the process had received it.
func (ts *TestState) Signal(ctx context.Context, sig os.Signal) error {
	select {
	case ts.sigs <- sig:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup interrupts the RunFunc if it is still running and waits for it to return.
func (ts *TestState) Cleanup(tb testing.TB) {
	tb.Helper()
	if ts.done == nil || ts.ran {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	select {
	case ts.sigs <- os.Interrupt:
	default:
	}
	err := ts.Wait(ctx)
	var eerr ExitError
	if err != nil && !errors.As(err, &eerr) && !errors.Is(err, context.Canceled) {
		tb.Errorf("run failed during cleanup: %v", err)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
