package protocol

import (
	"strings"
	"time"
)

// UserServer is the canonical domain for user JIDs.
const UserServer = "s.whatsapp.net"

// Group is full group metadata as reported by the endpoint.
type Group struct {
	JID          string
	Subject      string
	Topic        string
	Owner        string
	CreatedAt    time.Time
	Announce     bool
	Locked       bool
	IsCommunity  bool
	Participants []Participant
}

// Participant is one group member.
type Participant struct {
	JID          string
	IsAdmin      bool
	IsSuperAdmin bool
}

// GroupPatch is a partial update; nil fields are left untouched.
type GroupPatch struct {
	Subject  *string
	Topic    *string
	Announce *bool
	Locked   *bool
}

// NormalizeJID strips the device and agent suffix from a user JID and
// rewrites legacy domains to the canonical one. Group JIDs pass through.
func NormalizeJID(jid string) string {
	user, server, ok := strings.Cut(jid, "@")
	if !ok {
		return jid
	}
	if server == "c.us" {
		server = UserServer
	}
	if server != UserServer {
		return user + "@" + server
	}
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i]
	}
	if i := strings.IndexByte(user, '.'); i >= 0 {
		user = user[:i]
	}
	return user + "@" + server
}
