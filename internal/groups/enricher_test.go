package groups

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/wprelay/internal/protocol"
)

type fakeFetcher struct {
	calls   []string
	results map[string]string
	errs    map[string]error
}

func (f *fakeFetcher) fetch(_ context.Context, jid string) (string, error) {
	f.calls = append(f.calls, jid)
	if err, ok := f.errs[jid]; ok {
		return "", err
	}
	return f.results[jid], nil
}

func noSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
}

func TestEnricherOutcomes(t *testing.T) {
	f := &fakeFetcher{
		results: map[string]string{"ok@g.us": "https://pps/ok.jpg"},
		errs: map[string]error{
			"hidden@g.us": protocol.ErrPictureNotAuthorized,
			"none@g.us":   protocol.ErrPictureNotFound,
			"flaky@g.us":  errors.New("rate limited"),
		},
	}
	var slept []time.Duration
	e := &Enricher{
		Fetch:       f.fetch,
		Placeholder: "https://placeholder",
		MinDelay:    30 * time.Second,
		MaxDelay:    60 * time.Second,
		Sleep:       noSleep(&slept),
	}

	targets := []Target{
		{JID: "comm@g.us", IsCommunity: true},
		{JID: "ok@g.us"},
		{JID: "hidden@g.us"},
		{JID: "none@g.us"},
		{JID: "flaky@g.us"},
	}
	got := map[string]Result{}
	e.Run(context.Background(), targets, func(r Result) { got[r.JID] = r })

	if got["comm@g.us"].URL != "https://placeholder" {
		t.Errorf("community = %+v, want placeholder", got["comm@g.us"])
	}
	if got["ok@g.us"].URL != "https://pps/ok.jpg" {
		t.Errorf("ok = %+v", got["ok@g.us"])
	}
	for _, jid := range []string{"hidden@g.us", "none@g.us"} {
		if got[jid].URL != "https://placeholder" || got[jid].Err != nil {
			t.Errorf("%s = %+v, want placeholder without error", jid, got[jid])
		}
	}
	if got["flaky@g.us"].Err == nil {
		t.Errorf("flaky = %+v, want error", got["flaky@g.us"])
	}

	for _, jid := range f.calls {
		if jid == "comm@g.us" {
			t.Error("community group must not hit the endpoint")
		}
	}
	if len(slept) != 4 {
		t.Errorf("slept %d times, want one pause per endpoint call (4)", len(slept))
	}
	for _, d := range slept {
		if d < 30*time.Second || d > 60*time.Second {
			t.Errorf("delay %v outside [30s, 60s]", d)
		}
	}
}

func TestEnricherNeverFetchesImagedGroups(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{{JID: "g1@g.us"}, {JID: "g2@g.us"}})
	c.SetImage("g1@g.us", "https://pps/g1.jpg")

	f := &fakeFetcher{results: map[string]string{"g2@g.us": "https://pps/g2.jpg"}}
	var slept []time.Duration
	e := &Enricher{Fetch: f.fetch, Sleep: noSleep(&slept)}
	e.Run(context.Background(), c.PendingTargets(), func(r Result) {
		if r.Err == nil {
			c.SetImage(r.JID, r.URL)
		}
	})

	if len(f.calls) != 1 || f.calls[0] != "g2@g.us" {
		t.Errorf("fetch calls = %v, want only g2", f.calls)
	}
	if len(c.PendingTargets()) != 0 {
		t.Error("all groups should be enriched")
	}
}

func TestEnricherStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Enricher{
		Fetch: f.fetch,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	reported := 0
	e.Run(ctx, []Target{{JID: "a@g.us"}, {JID: "b@g.us"}}, func(Result) { reported++ })
	if len(f.calls) != 0 || reported != 0 {
		t.Errorf("calls=%v reported=%d after cancel, want none", f.calls, reported)
	}
}

func TestDelayRange(t *testing.T) {
	e := &Enricher{MinDelay: 30 * time.Second, MaxDelay: 60 * time.Second}
	for range 100 {
		d := e.Delay()
		if d < e.MinDelay || d > e.MaxDelay {
			t.Fatalf("Delay() = %v outside range", d)
		}
	}
	fixed := &Enricher{MinDelay: time.Second, MaxDelay: time.Second}
	if fixed.Delay() != time.Second {
		t.Errorf("fixed Delay() = %v", fixed.Delay())
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext(cancelled) = %v", err)
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext = %v", err)
	}
}
