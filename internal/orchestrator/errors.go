package orchestrator

import (
	"errors"

	"github.com/matheus3301/wprelay/internal/forward"
)

var (
	// ErrAlreadyConnected is returned when a tenant already has an open session.
	ErrAlreadyConnected = errors.New("tenant already connected")
	// ErrInvalidPhoneNumber is returned when a number cannot be normalized to E.164.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	// ErrNoActiveSession is returned when an operation needs a live session.
	ErrNoActiveSession = forward.ErrNoActiveSession
	// ErrAuthRejected is returned to a waiting caller when the credentials were refused.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrSessionClosed is returned to a waiting caller when the session ended first.
	ErrSessionClosed = errors.New("session closed before a result was available")
	// ErrTenantNotFound is returned when no profile exists for the tenant.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrNoGroups is returned when the tenant's groups have never been synced.
	ErrNoGroups = errors.New("no groups cached for tenant")
	// ErrShuttingDown is returned for commands issued after Shutdown.
	ErrShuttingDown = errors.New("orchestrator shutting down")
)
