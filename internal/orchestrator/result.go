package orchestrator

import (
	"context"
	"sync"
)

// ResultKind tags what CreateSession produced.
type ResultKind string

const (
	ResultQR          ResultKind = "qr"
	ResultPairingCode ResultKind = "pairing_code"
	ResultOpen        ResultKind = "open"
	ResultAlreadyLive ResultKind = "already_live"
)

// Result is the first outcome of a session creation. Value holds the QR data
// URL or the pairing code.
type Result struct {
	Kind  ResultKind
	Value string
}

// firstResult is resolved at most once; later resolutions are ignored.
type firstResult struct {
	once sync.Once
	done chan struct{}
	res  Result
	err  error
}

func newFirstResult() *firstResult {
	return &firstResult{done: make(chan struct{})}
}

func (f *firstResult) resolve(res Result, err error) {
	f.once.Do(func() {
		f.res = res
		f.err = err
		close(f.done)
	})
}

func (f *firstResult) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *firstResult) wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
