package orchestrator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
	"github.com/matheus3301/wprelay/internal/forward"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/status"
	"github.com/matheus3301/wprelay/internal/store"
	"go.uber.org/zap"
)

// fakeEndpoint hands out fakeHandles and remembers every one it opened.
type fakeEndpoint struct {
	mu       sync.Mutex
	handles  []*fakeHandle
	openErr  error
	self     *protocol.Identity
	groups   []protocol.Group
	pictures map[string]string
	// onConnect runs inside Handle.Connect; typically emits a QR or Open.
	onConnect func(h *fakeHandle)
}

func (e *fakeEndpoint) Open(_ context.Context, opts protocol.OpenOptions) (protocol.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	h := &fakeHandle{ep: e, opts: opts}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEndpoint) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

func (e *fakeEndpoint) handle(i int) *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[i]
}

func (e *fakeEndpoint) last() *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[len(e.handles)-1]
}

type sentMessage struct {
	To      string
	Content protocol.Content
}

type fakeHandle struct {
	ep   *fakeEndpoint
	opts protocol.OpenOptions

	mu        sync.Mutex
	ended     []protocol.Reason
	loggedOut bool
	paired    string
	sent      []sentMessage
	fetched   []string
	closeOnce sync.Once
}

func (h *fakeHandle) emit(evt protocol.Event) { h.opts.Emit(evt) }

func (h *fakeHandle) Connect(context.Context) error {
	if h.ep.onConnect != nil {
		h.ep.onConnect(h)
	}
	return nil
}

func (h *fakeHandle) Self() (protocol.Identity, bool) {
	h.ep.mu.Lock()
	defer h.ep.mu.Unlock()
	if h.ep.self == nil {
		return protocol.Identity{}, false
	}
	return *h.ep.self, true
}

func (h *fakeHandle) Send(_ context.Context, to string, c protocol.Content) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentMessage{To: to, Content: c})
	return "srv-1", nil
}

func (h *fakeHandle) PairPhone(_ context.Context, phone string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paired = phone
	return "ABCD-EFGH", nil
}

func (h *fakeHandle) ProfilePicture(_ context.Context, jid string) (string, error) {
	h.mu.Lock()
	h.fetched = append(h.fetched, jid)
	h.mu.Unlock()
	h.ep.mu.Lock()
	defer h.ep.mu.Unlock()
	if url, ok := h.ep.pictures[jid]; ok {
		return url, nil
	}
	return "", protocol.ErrPictureNotFound
}

func (h *fakeHandle) JoinedGroups(context.Context) ([]protocol.Group, error) {
	h.ep.mu.Lock()
	defer h.ep.mu.Unlock()
	return append([]protocol.Group(nil), h.ep.groups...), nil
}

func (h *fakeHandle) Download(context.Context, protocol.Media) ([]byte, error) {
	return []byte("media"), nil
}

func (h *fakeHandle) Logout(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loggedOut = true
	return nil
}

func (h *fakeHandle) End(reason protocol.Reason) {
	h.mu.Lock()
	h.ended = append(h.ended, reason)
	h.mu.Unlock()
	h.closeOnce.Do(func() { h.emit(protocol.Closed{Reason: reason}) })
}

func (h *fakeHandle) endReasons() []protocol.Reason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.Reason(nil), h.ended...)
}

func (h *fakeHandle) sentMessages() []sentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentMessage(nil), h.sent...)
}

// emitQR is an onConnect hook for an unpaired device.
func emitQR(h *fakeHandle) { h.emit(protocol.QR{Code: "2@abc,def"}) }

// emitOpen is an onConnect hook for stored credentials.
func emitOpen(h *fakeHandle) { h.emit(protocol.Open{}) }

type testEnv struct {
	o    *Orchestrator
	db   *store.DB
	ep   *fakeEndpoint
	bus  *bus.Bus
	conf Config
}

func newTestEnv(t *testing.T, ep *fakeEndpoint, tweak func(*Config)) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := Config{
		Layout:         layout.New(t.TempDir()),
		ResetInterval:  time.Hour,
		ReconnectDelay: 10 * time.Millisecond,
		StartupGrace:   time.Millisecond,
		CreateTimeout:  time.Second,
		CallTimeout:    time.Second,
		Sleep:          func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
	if tweak != nil {
		tweak(&cfg)
	}

	b := bus.New()
	d := forward.NewDispatcher(db, cfg.Layout.StagingDir(), b, zap.NewNop())
	o := New(cfg, ep, db, d, b, status.NewTracker(b), status.NewPublisher(b), zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		o.Shutdown(ctx)
	})
	return &testEnv{o: o, db: db, ep: ep, bus: b, conf: cfg}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
