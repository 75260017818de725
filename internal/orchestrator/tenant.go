package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/wprelay/internal/forward"
	"github.com/matheus3301/wprelay/internal/groups"
	"github.com/matheus3301/wprelay/internal/policy"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/qr"
	"github.com/matheus3301/wprelay/internal/status"
	"github.com/matheus3301/wprelay/internal/store"
	"go.uber.org/zap"
)

// tenant is the actor owning one tenant's session. Every field below the
// mailbox is only touched from the run goroutine.
type tenant struct {
	id      string
	credDir string
	o       *Orchestrator
	machine *status.Machine
	logger  *zap.Logger

	mu      sync.Mutex
	queue   []func()
	signal  chan struct{}
	stopped chan struct{}

	handle       protocol.Handle
	gen          uint64
	pending      *firstResult
	self         string
	cache        *groups.Cache
	synced       bool
	resetTimer   *time.Timer
	retryTimer   *time.Timer
	enrichCancel context.CancelFunc
	rerun        bool
}

func newTenant(o *Orchestrator, id string) *tenant {
	return &tenant{
		id:      id,
		credDir: o.cfg.Layout.TenantDir(id),
		o:       o,
		machine: status.NewMachine(id, o.bus),
		logger:  o.logger.With(zap.String("tenant", id)),
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
		cache:   groups.NewCache(),
	}
}

// post enqueues fn without blocking. The mailbox is unbounded.
func (t *tenant) post(fn func()) {
	t.mu.Lock()
	t.queue = append(t.queue, fn)
	t.mu.Unlock()
	select {
	case t.signal <- struct{}{}:
	default:
	}
}

// do runs fn on the actor and waits for it to finish.
func (t *tenant) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	t.post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopped:
		return ErrShuttingDown
	}
}

func (t *tenant) run(ctx context.Context) {
	defer close(t.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.signal:
		}
		for {
			t.mu.Lock()
			if len(t.queue) == 0 {
				t.mu.Unlock()
				break
			}
			fn := t.queue[0]
			t.queue[0] = nil
			t.queue = t.queue[1:]
			t.mu.Unlock()
			fn()
		}
	}
}

func (t *tenant) transition(to status.State) {
	if t.machine.Current() == to {
		return
	}
	if err := t.machine.Transition(to); err != nil {
		t.logger.Warn("state transition rejected", zap.Error(err))
	}
}

func (t *tenant) pendingResult() *firstResult {
	if t.pending == nil || t.pending.resolved() {
		t.pending = newFirstResult()
	}
	return t.pending
}

func (t *tenant) resolve(res Result, err error) {
	if t.pending == nil {
		return
	}
	t.pending.resolve(res, err)
	t.pending = nil
}

// open starts a new handle. Failures are reported to the pending caller.
func (t *tenant) open() {
	t.stopRetry()
	if t.handle != nil {
		return
	}
	t.transition(status.Initializing)

	t.gen++
	gen := t.gen
	ctx, cancel := context.WithTimeout(context.Background(), t.o.cfg.CallTimeout)
	defer cancel()

	h, err := t.o.endpoint.Open(ctx, protocol.OpenOptions{
		TenantID:      t.id,
		CredentialDir: t.credDir,
		Emit:          t.emitter(gen),
	})
	if err != nil {
		t.logger.Error("failed to open session", zap.Error(err))
		t.transition(status.Closing)
		t.transition(status.Idle)
		t.resolve(Result{}, fmt.Errorf("open session: %w", err))
		return
	}
	t.handle = h

	if err := h.Connect(ctx); err != nil {
		t.logger.Error("failed to connect", zap.Error(err))
		t.resolve(Result{}, fmt.Errorf("connect: %w", err))
		h.End(protocol.ReasonConnectionLost)
	}
}

func (t *tenant) emitter(gen uint64) func(protocol.Event) {
	return func(evt protocol.Event) {
		t.post(func() { t.handleEvent(gen, evt) })
	}
}

// teardown detaches the current handle and cancels everything armed for it.
func (t *tenant) teardown() protocol.Handle {
	if t.resetTimer != nil {
		t.resetTimer.Stop()
		t.resetTimer = nil
	}
	t.stopRetry()
	t.stopEnrichment()
	h := t.handle
	t.handle = nil
	t.gen++
	return h
}

func (t *tenant) stopRetry() {
	if t.retryTimer != nil {
		t.retryTimer.Stop()
		t.retryTimer = nil
	}
}

func (t *tenant) handleEvent(gen uint64, evt protocol.Event) {
	if gen != t.gen || t.handle == nil {
		t.logger.Debug("dropping event from replaced session", zap.String("event", fmt.Sprintf("%T", evt)))
		return
	}
	switch e := evt.(type) {
	case protocol.QR:
		t.onQR(e)
	case protocol.PairSuccess:
		t.logger.Info("device paired", zap.String("jid", e.JID))
	case protocol.CredsChanged:
		t.logger.Debug("credentials updated")
	case protocol.Open:
		t.onOpen()
	case protocol.Closed:
		t.onClosed(e)
	case protocol.MessageBatch:
		t.onMessages(e)
	case protocol.GroupUpsert:
		t.cache.Upsert(e.Groups)
		t.scheduleEnrichment()
	case protocol.GroupUpdate:
		if !t.cache.Update(e.JID, e.Patch) {
			t.logger.Debug("update for unknown group ignored", zap.String("group", e.JID))
		}
	case protocol.GroupParticipants:
		if t.cache.ApplyParticipants(e.JID, e.Action, e.Participants, t.self) {
			t.logger.Info("removed from group", zap.String("group", e.JID))
		}
	}
}

func (t *tenant) onQR(e protocol.QR) {
	url, err := qr.DataURL(e.Code)
	if err != nil {
		t.logger.Error("failed to render QR", zap.Error(err))
		return
	}
	t.o.publisher.Publish(t.id, status.UpdateQR, url)
	t.resolve(Result{Kind: ResultQR, Value: url}, nil)
	t.transition(status.AwaitingScan)
}

func (t *tenant) onOpen() {
	t.logger.Info("session open")
	t.o.publisher.ClearPairing(t.id)
	t.o.tracker.MarkConnected(t.id)
	t.o.publisher.Publish(t.id, status.UpdateStatus, status.StatusConnected)
	t.resolve(Result{Kind: ResultOpen}, nil)
	t.transition(status.Open)

	h := t.handle
	if id, ok := h.Self(); ok {
		t.self = id.JID
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.o.cfg.CallTimeout)
	defer cancel()

	t.resyncGroups(ctx, h)
	t.upsertProfile(ctx, h)
	t.armReset()
}

func (t *tenant) resyncGroups(ctx context.Context, h protocol.Handle) {
	fetched, err := h.JoinedGroups(ctx)
	if err != nil {
		t.logger.Error("failed to fetch joined groups", zap.Error(err))
		return
	}
	for _, jid := range t.cache.Resync(fetched) {
		t.logger.Info("group no longer joined", zap.String("group", jid))
	}
	t.synced = true
	t.logger.Info("groups synced", zap.Int("count", t.cache.Len()))
	t.scheduleEnrichment()
}

func (t *tenant) upsertProfile(ctx context.Context, h protocol.Handle) {
	id, ok := h.Self()
	if !ok {
		t.logger.Warn("open session without identity")
		return
	}
	avatar, err := h.ProfilePicture(ctx, id.JID)
	if err != nil {
		t.logger.Debug("own profile picture unavailable", zap.Error(err))
		avatar = ""
	}
	p := &store.TenantProfile{
		TenantID:   t.id,
		Name:       id.PushName,
		Number:     phoneOf(id.JID),
		Avatar:     avatar,
		IsValid:    true,
		IsLoggedIn: true,
	}
	if err := t.o.db.UpsertProfile(ctx, p); err != nil {
		t.logger.Error("failed to save tenant profile", zap.Error(err))
	}
}

// phoneOf extracts the number from a user JID.
func phoneOf(jid string) string {
	user, _, _ := strings.Cut(jid, "@")
	user, _, _ = strings.Cut(user, ":")
	return user
}

func (t *tenant) armReset() {
	if t.resetTimer != nil {
		t.resetTimer.Stop()
	}
	if t.o.cfg.ResetInterval <= 0 {
		return
	}
	gen := t.gen
	t.resetTimer = time.AfterFunc(t.o.cfg.ResetInterval, func() {
		t.post(func() {
			if gen != t.gen || t.handle == nil {
				return
			}
			t.logger.Info("periodic session reset")
			t.resetTimer = nil
			t.handle.End(protocol.ReasonPeriodicReset)
		})
	})
}

func (t *tenant) onClosed(e protocol.Closed) {
	t.teardown()
	t.o.tracker.MarkDisconnected(t.id)
	t.transition(status.Closing)

	d := policy.Decide(e.Reason)
	t.logger.Info("session closed",
		zap.String("reason", string(e.Reason)),
		zap.String("outcome", string(d.Outcome)),
		zap.Error(e.Err),
	)

	ctx, cancel := context.WithTimeout(context.Background(), t.o.cfg.CallTimeout)
	defer cancel()

	// Purged credentials cannot be restored, so the profile stops being valid too.
	if d.InvalidateProfile || d.PurgeCredentials {
		if err := t.o.db.InvalidateProfile(ctx, t.id); err != nil {
			t.logger.Error("failed to invalidate tenant profile", zap.Error(err))
		}
	}
	if d.PurgeCredentials {
		if err := os.RemoveAll(t.credDir); err != nil {
			t.logger.Error("failed to delete credentials", zap.Error(err))
		}
	}
	if d.ClearStatus {
		t.o.tracker.Clear(t.id)
		t.o.publisher.Clear(t.id)
	}
	switch d.Notice {
	case policy.NoticeExpired:
		t.o.publisher.Publish(t.id, status.UpdateStatus, status.StatusExpired)
	case policy.NoticeReconnecting:
		t.o.publisher.Publish(t.id, status.UpdateStatus, status.StatusReconnecting)
	}
	if d.AuthRejected {
		t.resolve(Result{}, fmt.Errorf("%w: %s", ErrAuthRejected, e.Reason))
	}

	if d.Retry() {
		t.transition(status.Reconnecting)
		t.scheduleRetry()
		return
	}

	t.o.publisher.ClearPairing(t.id)
	t.resolve(Result{}, fmt.Errorf("%w: %s", ErrSessionClosed, e.Reason))
	switch d.Outcome {
	case policy.OutcomeLoggedOut:
		t.transition(status.LoggedOut)
	case policy.OutcomeUnauthorized:
		t.transition(status.Unauthorized)
	default:
		t.transition(status.Idle)
	}
}

func (t *tenant) scheduleRetry() {
	gen := t.gen
	t.retryTimer = time.AfterFunc(t.o.cfg.ReconnectDelay, func() {
		t.post(func() {
			if gen != t.gen || t.handle != nil {
				return
			}
			t.retryTimer = nil
			t.logger.Info("reconnecting")
			t.open()
		})
	})
}

func (t *tenant) onMessages(e protocol.MessageBatch) {
	if !e.Live {
		t.logger.Debug("history batch not forwarded", zap.Int("count", len(e.Messages)))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.o.cfg.ForwardTimeout)
	defer cancel()

	// Runs on the actor, so reading the handle here is safe.
	session := func(context.Context) (forward.Session, error) {
		if t.handle == nil {
			return nil, ErrNoActiveSession
		}
		return t.handle, nil
	}
	t.o.dispatcher.Dispatch(ctx, t.id, session, e.Messages)
}

func (t *tenant) scheduleEnrichment() {
	if t.enrichCancel != nil {
		t.rerun = true
		return
	}
	h := t.handle
	if h == nil {
		return
	}
	targets := t.cache.PendingTargets()
	if len(targets) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.enrichCancel = cancel
	gen := t.gen
	e := &groups.Enricher{
		Fetch:       h.ProfilePicture,
		Placeholder: t.o.cfg.Placeholder,
		MinDelay:    t.o.cfg.PfpMinDelay,
		MaxDelay:    t.o.cfg.PfpMaxDelay,
		Sleep:       t.o.cfg.Sleep,
		Logger:      t.logger,
	}
	t.logger.Info("group picture enrichment started", zap.Int("pending", len(targets)))

	go func() {
		e.Run(ctx, targets, func(r groups.Result) {
			t.post(func() {
				if gen != t.gen {
					return
				}
				if r.Err != nil {
					t.cache.MarkPending(r.JID)
					return
				}
				t.cache.SetImage(r.JID, r.URL)
			})
		})
		t.post(func() {
			if gen != t.gen {
				return
			}
			t.enrichCancel = nil
			cancel()
			if t.rerun {
				t.rerun = false
				t.scheduleEnrichment()
			}
		})
	}()
}

func (t *tenant) stopEnrichment() {
	if t.enrichCancel != nil {
		t.enrichCancel()
		t.enrichCancel = nil
	}
	t.rerun = false
}

// closeSession ends the live handle on behalf of a caller. It reports
// whether a handle or a pending retry existed.
func (t *tenant) closeSession() bool {
	retrying := t.retryTimer != nil
	h := t.teardown()
	if h == nil {
		if retrying {
			t.transition(status.Idle)
		}
		return retrying
	}
	h.End(protocol.ReasonUserRequested)
	t.o.tracker.MarkDisconnected(t.id)
	t.o.publisher.ClearPairing(t.id)
	t.o.publisher.Publish(t.id, status.UpdateStatus, status.StatusClosed)
	t.transition(status.Closing)
	t.transition(status.Idle)
	t.resolve(Result{}, fmt.Errorf("%w: %s", ErrSessionClosed, protocol.ReasonUserRequested))
	return true
}
