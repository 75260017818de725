// Package orchestrator runs one actor per tenant that owns the tenant's
// protocol session, reacts to its events and applies the reconnection policy.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
	"github.com/matheus3301/wprelay/internal/forward"
	"github.com/matheus3301/wprelay/internal/groups"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/status"
	"github.com/matheus3301/wprelay/internal/store"
	"go.uber.org/zap"
)

// Config tunes session handling. Zero durations take the defaults below.
type Config struct {
	Layout         layout.Layout
	ResetInterval  time.Duration
	ReconnectDelay time.Duration
	StartupGrace   time.Duration
	CreateTimeout  time.Duration
	CallTimeout    time.Duration
	ForwardTimeout time.Duration
	Placeholder    string
	PfpMinDelay    time.Duration
	PfpMaxDelay    time.Duration
	// Sleep replaces the enrichment pause, mainly in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultResetInterval  = 25 * time.Minute
	DefaultReconnectDelay = 2 * time.Second
	DefaultStartupGrace   = 5 * time.Second
	DefaultCreateTimeout  = 60 * time.Second
	DefaultCallTimeout    = 30 * time.Second
	DefaultForwardTimeout = 2 * time.Minute
	DefaultPfpMinDelay    = 30 * time.Second
	DefaultPfpMaxDelay    = 60 * time.Second
)

func (c *Config) setDefaults() {
	if c.ResetInterval == 0 {
		c.ResetInterval = DefaultResetInterval
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.StartupGrace == 0 {
		c.StartupGrace = DefaultStartupGrace
	}
	if c.CreateTimeout == 0 {
		c.CreateTimeout = DefaultCreateTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.ForwardTimeout == 0 {
		c.ForwardTimeout = DefaultForwardTimeout
	}
	if c.PfpMinDelay == 0 && c.PfpMaxDelay == 0 {
		c.PfpMinDelay = DefaultPfpMinDelay
		c.PfpMaxDelay = DefaultPfpMaxDelay
	}
	if c.Placeholder == "" {
		c.Placeholder = groups.DefaultPlaceholder
	}
}

// Orchestrator manages every tenant's session.
type Orchestrator struct {
	cfg        Config
	endpoint   protocol.Endpoint
	db         *store.DB
	dispatcher *forward.Dispatcher
	bus        *bus.Bus
	tracker    *status.Tracker
	publisher  *status.Publisher
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tenants map[string]*tenant
}

// New creates an orchestrator. Tenant actors start lazily on first use.
func New(cfg Config, endpoint protocol.Endpoint, db *store.DB, dispatcher *forward.Dispatcher,
	b *bus.Bus, tracker *status.Tracker, publisher *status.Publisher, logger *zap.Logger) *Orchestrator {
	cfg.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		endpoint:   endpoint,
		db:         db,
		dispatcher: dispatcher,
		bus:        b,
		tracker:    tracker,
		publisher:  publisher,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		tenants:    make(map[string]*tenant),
	}
}

// tenant returns the actor for id, starting it if needed.
func (o *Orchestrator) tenant(id string) (*tenant, error) {
	if err := layout.ValidateTenantID(id); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx.Err() != nil {
		return nil, ErrShuttingDown
	}
	t, ok := o.tenants[id]
	if !ok {
		t = newTenant(o, id)
		o.tenants[id] = t
		go t.run(o.ctx)
	}
	return t, nil
}

func (o *Orchestrator) lookup(id string) *tenant {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tenants[id]
}

// CreateSession opens a session for the tenant and waits for the first QR,
// pairing code, open or failure, at most CreateTimeout.
func (o *Orchestrator) CreateSession(ctx context.Context, tenantID string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CreateTimeout)
	defer cancel()
	if o.tracker.IsConnected(tenantID) {
		return Result{}, ErrAlreadyConnected
	}
	t, err := o.tenant(tenantID)
	if err != nil {
		return Result{}, err
	}

	var (
		fut  *firstResult
		live bool
	)
	err = t.do(ctx, func() {
		if t.handle != nil {
			live = true
			return
		}
		fut = t.pendingResult()
		t.open()
	})
	if err != nil {
		return Result{}, err
	}
	if live {
		return Result{Kind: ResultAlreadyLive}, nil
	}
	return fut.wait(ctx)
}

// RequestPairingCode ensures a session exists and asks the endpoint for a
// phone pairing code.
func (o *Orchestrator) RequestPairingCode(ctx context.Context, tenantID, phone string) (string, error) {
	number, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	if o.tracker.IsConnected(tenantID) {
		return "", ErrAlreadyConnected
	}
	t, err := o.tenant(tenantID)
	if err != nil {
		return "", err
	}

	var (
		h   protocol.Handle
		fut *firstResult
	)
	err = t.do(ctx, func() {
		if t.handle == nil {
			fut = t.pendingResult()
			t.open()
		}
		h = t.handle
	})
	if err != nil {
		return "", err
	}
	if h == nil {
		if _, err := fut.wait(ctx); err != nil {
			return "", err
		}
		return "", ErrNoActiveSession
	}

	code, err := h.PairPhone(ctx, number)
	if err != nil {
		return "", fmt.Errorf("request pairing code: %w", err)
	}
	o.publisher.Publish(tenantID, status.UpdatePairingCode, code)
	t.post(func() {
		if t.handle == h {
			t.resolve(Result{Kind: ResultPairingCode, Value: code}, nil)
		}
	})
	t.logger.Info("pairing code issued")
	return code, nil
}

// CloseSession ends the tenant's session, if any, without touching credentials.
func (o *Orchestrator) CloseSession(ctx context.Context, tenantID string) error {
	t := o.lookup(tenantID)
	if t == nil {
		return nil
	}
	var closed bool
	if err := t.do(ctx, func() { closed = t.closeSession() }); err != nil {
		return err
	}
	if closed {
		if err := o.db.SetLoggedIn(ctx, tenantID, false); err != nil {
			return fmt.Errorf("update tenant profile: %w", err)
		}
		t.logger.Info("session closed by request")
	}
	return nil
}

// Logout unlinks the device, closes the session and deletes the tenant's
// credentials and status. A tenant without a running actor is purged
// without starting one.
func (o *Orchestrator) Logout(ctx context.Context, tenantID string) error {
	if err := layout.ValidateTenantID(tenantID); err != nil {
		return err
	}
	logger := o.logger.With(zap.String("tenant", tenantID))
	purge := func() {
		if err := os.RemoveAll(o.cfg.Layout.TenantDir(tenantID)); err != nil {
			logger.Error("failed to delete credentials", zap.Error(err))
		}
		o.tracker.Clear(tenantID)
		o.publisher.Clear(tenantID)
	}

	if t := o.lookup(tenantID); t != nil {
		err := t.do(ctx, func() {
			if h := t.handle; h != nil {
				lctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
				if err := h.Logout(lctx); err != nil {
					t.logger.Warn("protocol logout failed", zap.Error(err))
				}
				cancel()
			}
			t.closeSession()
			purge()
		})
		if err != nil {
			return err
		}
	} else {
		purge()
	}

	if err := o.db.InvalidateProfile(ctx, tenantID); err != nil {
		return fmt.Errorf("invalidate tenant profile: %w", err)
	}
	logger.Info("tenant logged out")
	return nil
}

// Send delivers content through the tenant's live session.
func (o *Orchestrator) Send(ctx context.Context, tenantID, to string, content protocol.Content) (string, error) {
	t := o.lookup(tenantID)
	if t == nil {
		return "", ErrNoActiveSession
	}
	var h protocol.Handle
	if err := t.do(ctx, func() { h = t.handle }); err != nil {
		return "", err
	}
	if h == nil || !o.tracker.IsConnected(tenantID) {
		return "", ErrNoActiveSession
	}
	id, err := h.Send(ctx, protocol.NormalizeJID(to), content)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return id, nil
}

// Status returns the tenant's connection status.
func (o *Orchestrator) Status(tenantID string) (status.ConnectionStatus, bool) {
	return o.tracker.Get(tenantID)
}

// IsConnected reports whether the tenant currently has an open session.
func (o *Orchestrator) IsConnected(tenantID string) bool {
	return o.tracker.IsConnected(tenantID)
}

// State returns the tenant's lifecycle state; unknown tenants are Idle.
func (o *Orchestrator) State(tenantID string) status.State {
	if t := o.lookup(tenantID); t != nil {
		return t.machine.Current()
	}
	return status.Idle
}

// Pairing returns the tenant's current QR data URL or pairing code.
func (o *Orchestrator) Pairing(tenantID string) (status.Update, bool) {
	return o.publisher.Pairing(tenantID)
}

// Watch streams the tenant's QR and status values, starting with the latest.
func (o *Orchestrator) Watch(tenantID string, bufSize int) (<-chan bus.Event, func()) {
	return o.publisher.Subscribe(tenantID, bufSize)
}

// Profile returns the stored tenant profile.
func (o *Orchestrator) Profile(ctx context.Context, tenantID string) (*store.TenantProfile, error) {
	p, err := o.db.GetProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrTenantNotFound
	}
	return p, nil
}

// Groups returns the tenant's cached groups.
func (o *Orchestrator) Groups(ctx context.Context, tenantID string) ([]groups.Record, error) {
	t := o.lookup(tenantID)
	if t == nil {
		return nil, ErrNoGroups
	}
	var (
		records []groups.Record
		synced  bool
	)
	if err := t.do(ctx, func() {
		synced = t.synced
		records = t.cache.List()
	}); err != nil {
		return nil, err
	}
	if !synced {
		return nil, ErrNoGroups
	}
	return records, nil
}

// TenantInfo summarizes one tenant for listings.
type TenantInfo struct {
	TenantID   string
	State      status.State
	Connection status.ConnectionStatus
	Profile    *store.TenantProfile
}

// Tenants lists every tenant with a stored profile or a running actor.
func (o *Orchestrator) Tenants(ctx context.Context) ([]TenantInfo, error) {
	profiles, err := o.db.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.TenantProfile, len(profiles))
	for i := range profiles {
		byID[profiles[i].TenantID] = &profiles[i]
	}

	o.mu.Lock()
	for id := range o.tenants {
		if _, ok := byID[id]; !ok {
			byID[id] = nil
		}
	}
	o.mu.Unlock()

	infos := make([]TenantInfo, 0, len(byID))
	for id, p := range byID {
		conn, _ := o.tracker.Get(id)
		infos = append(infos, TenantInfo{
			TenantID:   id,
			State:      o.State(id),
			Connection: conn,
			Profile:    p,
		})
	}
	slices.SortFunc(infos, func(a, b TenantInfo) int {
		switch {
		case a.TenantID < b.TenantID:
			return -1
		case a.TenantID > b.TenantID:
			return 1
		}
		return 0
	})
	return infos, nil
}

// Restore waits for the startup grace period, then reopens every tenant
// whose stored credentials were last known valid. Each tenant is restored in
// its own goroutine.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if err := groups.SleepContext(ctx, o.cfg.StartupGrace); err != nil {
		return err
	}
	profiles, err := o.db.ValidProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load valid profiles: %w", err)
	}
	o.logger.Info("restoring sessions", zap.Int("count", len(profiles)))
	for _, p := range profiles {
		go func(id string) {
			res, err := o.CreateSession(o.ctx, id)
			if err != nil {
				o.logger.Warn("session restore failed", zap.String("tenant", id), zap.Error(err))
				return
			}
			o.logger.Info("session restored", zap.String("tenant", id), zap.String("result", string(res.Kind)))
		}(p.TenantID)
	}
	return nil
}

// Shutdown ends every live session and stops the tenant actors. Stored
// profiles are left untouched so the sessions are restored on next start.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	tenants := make([]*tenant, 0, len(o.tenants))
	for _, t := range o.tenants {
		tenants = append(tenants, t)
	}
	o.mu.Unlock()

	for _, t := range tenants {
		err := t.do(ctx, func() {
			if t.closeSession() {
				t.logger.Info("session closed for shutdown")
			}
		})
		if err != nil {
			t.logger.Warn("failed to close session on shutdown", zap.Error(err))
		}
	}
	o.cancel()
}
