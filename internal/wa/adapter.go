// Package wa implements the protocol endpoint on top of whatsmeow. Each
// tenant gets its own device store under its credential directory.
package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/matheus3301/wprelay/internal/protocol"
	"go.mau.fi/whatsmeow"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// SessionDBName is the whatsmeow device store file inside a credential directory.
const SessionDBName = "session.db"

var osInfoOnce sync.Once

// Endpoint opens whatsmeow-backed handles.
type Endpoint struct {
	logger *zap.Logger
}

// NewEndpoint creates an endpoint. deviceName is shown in the phone's linked devices list.
func NewEndpoint(deviceName string, logger *zap.Logger) *Endpoint {
	osInfoOnce.Do(func() {
		if deviceName == "" {
			deviceName = "wprelay"
		}
		wastore.SetOSInfo(deviceName, [3]uint32{0, 1, 0})
	})
	return &Endpoint{logger: logger}
}

// Open creates the tenant's device store and a client bound to it. The
// client is not connected until Handle.Connect.
func (e *Endpoint) Open(ctx context.Context, opts protocol.OpenOptions) (protocol.Handle, error) {
	if err := os.MkdirAll(opts.CredentialDir, 0700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	dbPath := filepath.Join(opts.CredentialDir, SessionDBName)

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)
	// Reconnects are decided by the orchestrator's policy, not by whatsmeow.
	client.EnableAutoReconnect = false

	h := &handle{
		tenant:    opts.TenantID,
		client:    client,
		container: container,
		emit:      opts.Emit,
		logger:    e.logger.With(zap.String("tenant", opts.TenantID)),
	}
	client.AddEventHandler(h.handleEvent)
	return h, nil
}

// handle adapts one whatsmeow client to protocol.Handle.
type handle struct {
	tenant    string
	client    *whatsmeow.Client
	container *sqlstore.Container
	emit      func(protocol.Event)
	logger    *zap.Logger

	closed   atomic.Bool
	qrMu     sync.Mutex
	qrCancel context.CancelFunc
}

// Connect dials WhatsApp. Without stored credentials it first opens the QR
// channel so pairing codes are emitted as QR events.
func (h *handle) Connect(_ context.Context) error {
	if h.client.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		ch, err := h.client.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("get QR channel: %w", err)
		}
		h.qrMu.Lock()
		h.qrCancel = cancel
		h.qrMu.Unlock()
		go h.watchQR(ch)
	}

	h.logger.Info("connecting to WhatsApp")
	if err := h.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (h *handle) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			h.deliver(protocol.QR{Code: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			return
		case whatsmeow.QRChannelTimeout.Event:
			h.close(protocol.ReasonTimedOut, nil)
			return
		case whatsmeow.QRChannelClientOutdated.Event:
			h.close(protocol.ReasonProtocolMismatch, nil)
			return
		case whatsmeow.QRChannelScannedWithoutMultidevice.Event:
			h.close(protocol.ReasonBadSession, nil)
			return
		case whatsmeow.QRChannelEventError:
			h.close(protocol.ReasonUnknown, item.Error)
			return
		}
	}
}

func (h *handle) Self() (protocol.Identity, bool) {
	id := h.client.Store.ID
	if id == nil {
		return protocol.Identity{}, false
	}
	return protocol.Identity{
		JID:      id.ToNonAD().String(),
		PushName: h.client.Store.PushName,
	}, true
}

func (h *handle) Send(ctx context.Context, to string, content protocol.Content) (string, error) {
	jid, err := types.ParseJID(to)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	msg, err := h.buildMessage(ctx, content)
	if err != nil {
		return "", err
	}
	resp, err := h.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

func (h *handle) PairPhone(ctx context.Context, phone string) (string, error) {
	if !h.client.IsConnected() {
		return "", protocol.ErrNotConnected
	}
	code, err := h.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		return "", fmt.Errorf("pair phone: %w", err)
	}
	return code, nil
}

func (h *handle) ProfilePicture(ctx context.Context, jid string) (string, error) {
	target, err := types.ParseJID(jid)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	info, err := h.client.GetProfilePictureInfo(ctx, target, &whatsmeow.GetProfilePictureParams{})
	switch {
	case errors.Is(err, whatsmeow.ErrProfilePictureNotSet):
		return "", protocol.ErrPictureNotFound
	case errors.Is(err, whatsmeow.ErrProfilePictureUnauthorized):
		return "", protocol.ErrPictureNotAuthorized
	case err != nil:
		return "", fmt.Errorf("get profile picture: %w", err)
	case info == nil || info.URL == "":
		return "", protocol.ErrPictureNotFound
	}
	return info.URL, nil
}

func (h *handle) JoinedGroups(ctx context.Context) ([]protocol.Group, error) {
	infos, err := h.client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("get joined groups: %w", err)
	}
	groups := make([]protocol.Group, 0, len(infos))
	for _, info := range infos {
		groups = append(groups, convertGroup(info))
	}
	return groups, nil
}

func (h *handle) Download(ctx context.Context, media protocol.Media) ([]byte, error) {
	ref, ok := media.Ref.(whatsmeow.DownloadableMessage)
	if !ok {
		return nil, fmt.Errorf("media %s has no downloadable reference", media.MediaKind)
	}
	return h.client.Download(ctx, ref)
}

func (h *handle) Logout(ctx context.Context) error {
	return h.client.Logout(ctx)
}

func (h *handle) End(reason protocol.Reason) {
	h.close(reason, nil)
}

// close tears the client down once and reports Closed after the device
// store has been released.
func (h *handle) close(reason protocol.Reason, err error) {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.logger.Info("closing WhatsApp session", zap.String("reason", string(reason)), zap.Error(err))
	h.qrMu.Lock()
	if h.qrCancel != nil {
		h.qrCancel()
	}
	h.qrMu.Unlock()

	// whatsmeow dispatches events while holding internal locks; tear down off that goroutine.
	go func() {
		if h.client != nil {
			h.client.Disconnect()
		}
		if h.container != nil {
			if cerr := h.container.Close(); cerr != nil {
				h.logger.Warn("failed to close session store", zap.Error(cerr))
			}
		}
		h.emit(protocol.Closed{Reason: reason, Err: err})
	}()
}

func (h *handle) deliver(evt protocol.Event) {
	if h.closed.Load() {
		return
	}
	h.emit(evt)
}
