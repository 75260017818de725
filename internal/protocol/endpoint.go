// Package protocol defines the contract between the session orchestrator and
// a messaging protocol implementation. The orchestrator only ever talks to
// these interfaces; internal/wa provides the WhatsApp implementation.
package protocol

import (
	"context"
	"errors"
)

var (
	// ErrPictureNotFound is returned by Handle.ProfilePicture when the target has no picture.
	ErrPictureNotFound = errors.New("profile picture not set")
	// ErrPictureNotAuthorized is returned when the picture exists but is hidden from us.
	ErrPictureNotAuthorized = errors.New("profile picture not authorized")
	// ErrNotConnected is returned by handle operations that need a live socket.
	ErrNotConnected = errors.New("handle not connected")
)

// Endpoint opens protocol sessions backed by tenant-scoped credential storage.
type Endpoint interface {
	Open(ctx context.Context, opts OpenOptions) (Handle, error)
}

// OpenOptions configures a new handle.
type OpenOptions struct {
	TenantID      string
	CredentialDir string
	// Emit receives every event produced by the handle, in order.
	// It must not block.
	Emit func(Event)
}

// Identity is the account a handle is logged in as.
type Identity struct {
	JID      string
	PushName string
}

// Handle is one live protocol session. A handle emits exactly one Closed
// event over its lifetime, either when the remote side drops it or after End.
type Handle interface {
	// Connect dials the server. When no credentials exist the handle emits
	// QR events until it is paired or the pairing window times out.
	Connect(ctx context.Context) error
	// Self returns the logged-in identity, or false before pairing.
	Self() (Identity, bool)
	Send(ctx context.Context, to string, content Content) (string, error)
	// PairPhone requests a pairing code for an E.164 number without the leading '+'.
	PairPhone(ctx context.Context, phone string) (string, error)
	ProfilePicture(ctx context.Context, jid string) (string, error)
	JoinedGroups(ctx context.Context) ([]Group, error)
	Download(ctx context.Context, media Media) ([]byte, error)
	Logout(ctx context.Context) error
	// End tears the handle down and emits Closed with the given reason.
	End(reason Reason)
}
