package policy

import (
	"testing"

	"github.com/matheus3301/wprelay/internal/protocol"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		reason     protocol.Reason
		retry      bool
		purge      bool
		invalidate bool
		clear      bool
		notice     Notice
		outcome    Outcome
	}{
		{protocol.ReasonUnauthorized, false, true, true, true, NoticeNone, OutcomeUnauthorized},
		{protocol.ReasonLoggedOut, false, true, false, true, NoticeNone, OutcomeLoggedOut},
		{protocol.ReasonTimedOut, false, false, false, false, NoticeExpired, OutcomeIdle},
		{protocol.ReasonUserRequested, false, false, false, false, NoticeNone, OutcomeIdle},
		{protocol.ReasonBadSession, false, true, false, false, NoticeNone, OutcomeLoggedOut},
		{protocol.ReasonProtocolMismatch, false, true, false, false, NoticeNone, OutcomeLoggedOut},
		{protocol.ReasonConnectionLost, true, false, false, false, NoticeReconnecting, OutcomeRetry},
		{protocol.ReasonConnectionReplaced, true, false, false, false, NoticeReconnecting, OutcomeRetry},
		{protocol.ReasonPeriodicReset, true, false, false, false, NoticeReconnecting, OutcomeRetry},
		{protocol.Reason("something-new"), true, false, false, false, NoticeReconnecting, OutcomeRetry},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			d := Decide(tt.reason)
			if d.Retry() != tt.retry {
				t.Errorf("Retry() = %v, want %v", d.Retry(), tt.retry)
			}
			if d.PurgeCredentials != tt.purge {
				t.Errorf("PurgeCredentials = %v, want %v", d.PurgeCredentials, tt.purge)
			}
			if d.InvalidateProfile != tt.invalidate {
				t.Errorf("InvalidateProfile = %v, want %v", d.InvalidateProfile, tt.invalidate)
			}
			if d.ClearStatus != tt.clear {
				t.Errorf("ClearStatus = %v, want %v", d.ClearStatus, tt.clear)
			}
			if d.Notice != tt.notice {
				t.Errorf("Notice = %q, want %q", d.Notice, tt.notice)
			}
			if d.Outcome != tt.outcome {
				t.Errorf("Outcome = %q, want %q", d.Outcome, tt.outcome)
			}
		})
	}
}

func TestDecideIsStable(t *testing.T) {
	// Repeated lookups must not depend on earlier calls.
	first := Decide(protocol.ReasonUnauthorized)
	for range 3 {
		_ = Decide(protocol.ReasonConnectionLost)
		_ = Decide(protocol.ReasonTimedOut)
	}
	if got := Decide(protocol.ReasonUnauthorized); got != first {
		t.Errorf("Decide changed between calls: %+v vs %+v", got, first)
	}
}
