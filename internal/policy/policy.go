// Package policy maps a close reason to the recovery action the orchestrator takes.
package policy

import "github.com/matheus3301/wprelay/internal/protocol"

// Outcome is the lifecycle state a tenant settles in when no retry happens.
type Outcome string

const (
	OutcomeRetry        Outcome = "retry"
	OutcomeIdle         Outcome = "idle"
	OutcomeLoggedOut    Outcome = "logged_out"
	OutcomeUnauthorized Outcome = "unauthorized"
)

// Notice is a status string pushed to QR/status subscribers.
type Notice string

const (
	NoticeNone         Notice = ""
	NoticeExpired      Notice = "expired"
	NoticeReconnecting Notice = "reconnecting"
)

// Decision is the full set of side effects for one close reason.
// Every decision implies marking the tenant disconnected.
type Decision struct {
	Outcome           Outcome
	InvalidateProfile bool
	PurgeCredentials  bool
	ClearStatus       bool
	Notice            Notice
	// AuthRejected marks terminal credential failures surfaced to a waiting caller.
	AuthRejected bool
}

// Retry reports whether the tenant should be reopened.
func (d Decision) Retry() bool { return d.Outcome == OutcomeRetry }

var table = map[protocol.Reason]Decision{
	protocol.ReasonUnauthorized: {
		Outcome:           OutcomeUnauthorized,
		InvalidateProfile: true,
		PurgeCredentials:  true,
		ClearStatus:       true,
		AuthRejected:      true,
	},
	protocol.ReasonLoggedOut: {
		Outcome:          OutcomeLoggedOut,
		PurgeCredentials: true,
		ClearStatus:      true,
		AuthRejected:     true,
	},
	protocol.ReasonTimedOut: {
		Outcome: OutcomeIdle,
		Notice:  NoticeExpired,
	},
	protocol.ReasonUserRequested: {
		Outcome: OutcomeIdle,
	},
	protocol.ReasonBadSession: {
		Outcome:          OutcomeLoggedOut,
		PurgeCredentials: true,
		AuthRejected:     true,
	},
	protocol.ReasonProtocolMismatch: {
		Outcome:          OutcomeLoggedOut,
		PurgeCredentials: true,
		AuthRejected:     true,
	},
}

var fallback = Decision{
	Outcome: OutcomeRetry,
	Notice:  NoticeReconnecting,
}

// Decide returns the action for reason. Unlisted reasons are transient.
func Decide(reason protocol.Reason) Decision {
	if d, ok := table[reason]; ok {
		return d
	}
	return fallback
}
