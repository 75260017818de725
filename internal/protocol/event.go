package protocol

import "time"

// Reason classifies why a handle closed.
type Reason string

const (
	ReasonUnauthorized       Reason = "unauthorized"
	ReasonLoggedOut          Reason = "logged_out"
	ReasonTimedOut           Reason = "timed_out"
	ReasonUserRequested      Reason = "user_requested"
	ReasonBadSession         Reason = "bad_session"
	ReasonProtocolMismatch   Reason = "protocol_mismatch"
	ReasonConnectionLost     Reason = "connection_lost"
	ReasonConnectionReplaced Reason = "connection_replaced"
	ReasonPeriodicReset      Reason = "periodic_reset"
	ReasonUnknown            Reason = "unknown"
)

// Event is anything a handle emits.
type Event interface {
	event()
}

// QR carries a fresh pairing QR payload.
type QR struct {
	Code string
}

// PairSuccess fires once the device has been linked, before the first Open.
type PairSuccess struct {
	JID string
}

// Open fires when the session is authenticated and ready.
type Open struct{}

// Closed fires once when the handle is gone.
type Closed struct {
	Reason Reason
	Err    error
}

// CredsChanged fires whenever the endpoint persisted new credential material.
type CredsChanged struct{}

// MessageBatch delivers inbound messages. Live is false for history backfill.
type MessageBatch struct {
	Live     bool
	Messages []Message
}

// GroupUpsert carries full metadata for groups that were created or joined.
type GroupUpsert struct {
	Groups []Group
}

// GroupUpdate carries a partial change to one group.
type GroupUpdate struct {
	JID   string
	Patch GroupPatch
}

// ParticipantAction is the kind of membership change.
type ParticipantAction string

const (
	ParticipantAdd     ParticipantAction = "add"
	ParticipantRemove  ParticipantAction = "remove"
	ParticipantPromote ParticipantAction = "promote"
	ParticipantDemote  ParticipantAction = "demote"
)

// GroupParticipants carries one membership change for one group.
type GroupParticipants struct {
	JID          string
	Action       ParticipantAction
	Participants []string
}

func (QR) event()                {}
func (PairSuccess) event()       {}
func (Open) event()              {}
func (Closed) event()            {}
func (CredsChanged) event()      {}
func (MessageBatch) event()      {}
func (GroupUpsert) event()       {}
func (GroupUpdate) event()       {}
func (GroupParticipants) event() {}

// Message is one inbound message.
type Message struct {
	ID        string
	ChatJID   string
	SenderJID string
	PushName  string
	FromMe    bool
	Timestamp time.Time
	Content   Content
}
