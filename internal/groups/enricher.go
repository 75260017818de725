package groups

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/matheus3301/wprelay/internal/protocol"
	"go.uber.org/zap"
)

// DefaultPlaceholder is stored for groups whose picture cannot be fetched.
const DefaultPlaceholder = "https://cdn.pixabay.com/photo/2021/07/02/04/48/user-6380868_640.png"

// PictureFetcher looks up a group's profile picture URL.
type PictureFetcher func(ctx context.Context, jid string) (string, error)

// Result is the outcome for one target. Err is set when the group should
// stay pending; otherwise URL holds the picture or the placeholder.
type Result struct {
	JID string
	URL string
	Err error
}

// Enricher fetches group pictures one at a time with a jittered pause
// before every endpoint call.
type Enricher struct {
	Fetch       PictureFetcher
	Placeholder string
	MinDelay    time.Duration
	MaxDelay    time.Duration
	// Sleep waits for d or until ctx ends. Defaults to a timer wait.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// Run walks targets in order, calling report after each one. It returns
// early when ctx is cancelled.
func (e *Enricher) Run(ctx context.Context, targets []Target, report func(Result)) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	placeholder := e.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		if t.IsCommunity {
			report(Result{JID: t.JID, URL: placeholder})
			continue
		}
		if err := e.sleep(ctx, e.Delay()); err != nil {
			return
		}

		url, err := e.Fetch(ctx, t.JID)
		switch {
		case err == nil:
			report(Result{JID: t.JID, URL: url})
		case errors.Is(err, protocol.ErrPictureNotFound), errors.Is(err, protocol.ErrPictureNotAuthorized):
			report(Result{JID: t.JID, URL: placeholder})
		default:
			if ctx.Err() != nil {
				return
			}
			logger.Warn("group picture fetch failed", zap.String("group", t.JID), zap.Error(err))
			report(Result{JID: t.JID, Err: err})
		}
	}
}

// Delay draws a pause uniformly from [MinDelay, MaxDelay].
func (e *Enricher) Delay() time.Duration {
	if e.MaxDelay <= e.MinDelay {
		return e.MinDelay
	}
	return e.MinDelay + rand.N(e.MaxDelay-e.MinDelay+1)
}

func (e *Enricher) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d unless ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
