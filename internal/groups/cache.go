// Package groups keeps per-tenant group metadata in memory and merges the
// full and incremental updates reported by the protocol endpoint.
package groups

import (
	"slices"
	"sort"
	"time"

	"github.com/matheus3301/wprelay/internal/protocol"
)

// Record is the cached state of one group.
type Record struct {
	JID             string
	Subject         string
	Topic           string
	Owner           string
	CreatedAt       time.Time
	Announce        bool
	Locked          bool
	IsCommunity     bool
	Participants    []protocol.Participant
	ImageURL        *string
	PendingPfpFetch bool
}

// Target is a group awaiting a profile picture.
type Target struct {
	JID         string
	IsCommunity bool
}

// Cache holds one tenant's groups. It is not safe for concurrent use; the
// owning tenant serializes access.
type Cache struct {
	records map[string]*Record
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]*Record)}
}

// Resync replaces the cache content with a full fetch. Fetched fields
// overwrite cached ones except ImageURL and PendingPfpFetch. Participants
// already known keep their cached entry. Returns the JIDs of groups that
// disappeared from the fetch.
func (c *Cache) Resync(fetched []protocol.Group) []string {
	seen := make(map[string]bool, len(fetched))
	for _, g := range fetched {
		seen[g.JID] = true
		old, ok := c.records[g.JID]
		if !ok {
			c.records[g.JID] = newRecord(g)
			continue
		}
		merged := fromGroup(g)
		merged.ImageURL = old.ImageURL
		merged.PendingPfpFetch = old.PendingPfpFetch
		merged.Participants = mergeParticipants(old.Participants, g.Participants)
		c.records[g.JID] = merged
	}

	var removed []string
	for jid := range c.records {
		if !seen[jid] {
			removed = append(removed, jid)
			delete(c.records, jid)
		}
	}
	sort.Strings(removed)
	return removed
}

// Upsert overwrites the given groups and marks them for enrichment.
func (c *Cache) Upsert(groups []protocol.Group) {
	for _, g := range groups {
		c.records[g.JID] = newRecord(g)
	}
}

// Update merges the non-nil fields of patch into an existing group.
// Unknown groups are ignored; reports whether a record changed.
func (c *Cache) Update(jid string, patch protocol.GroupPatch) bool {
	r, ok := c.records[jid]
	if !ok {
		return false
	}
	if patch.Subject != nil {
		r.Subject = *patch.Subject
	}
	if patch.Topic != nil {
		r.Topic = *patch.Topic
	}
	if patch.Announce != nil {
		r.Announce = *patch.Announce
	}
	if patch.Locked != nil {
		r.Locked = *patch.Locked
	}
	return true
}

// ApplyParticipants applies a membership change. Identifiers are normalized
// before comparison. When self is among the removed participants the whole
// group is dropped and deleted is true.
func (c *Cache) ApplyParticipants(jid string, action protocol.ParticipantAction, participants []string, self string) (deleted bool) {
	r, ok := c.records[jid]
	if !ok {
		return false
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, protocol.NormalizeJID(p))
	}

	switch action {
	case protocol.ParticipantAdd:
		for _, id := range ids {
			if indexOf(r.Participants, id) < 0 {
				r.Participants = append(r.Participants, protocol.Participant{JID: id})
			}
		}
	case protocol.ParticipantRemove:
		if self != "" && slices.Contains(ids, protocol.NormalizeJID(self)) {
			delete(c.records, jid)
			return true
		}
		r.Participants = slices.DeleteFunc(r.Participants, func(p protocol.Participant) bool {
			return slices.Contains(ids, protocol.NormalizeJID(p.JID))
		})
	case protocol.ParticipantPromote, protocol.ParticipantDemote:
		admin := action == protocol.ParticipantPromote
		for _, id := range ids {
			if i := indexOf(r.Participants, id); i >= 0 {
				r.Participants[i].IsAdmin = admin
			}
		}
	}
	return false
}

// PendingTargets returns groups without an image, ordered by JID.
func (c *Cache) PendingTargets() []Target {
	var targets []Target
	for _, r := range c.records {
		if r.ImageURL == nil {
			targets = append(targets, Target{JID: r.JID, IsCommunity: r.IsCommunity})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].JID < targets[j].JID })
	return targets
}

// SetImage stores a resolved picture URL and ends enrichment for the group.
func (c *Cache) SetImage(jid, url string) bool {
	r, ok := c.records[jid]
	if !ok {
		return false
	}
	r.ImageURL = &url
	r.PendingPfpFetch = false
	return true
}

// MarkPending keeps the group queued for the next enrichment run.
func (c *Cache) MarkPending(jid string) {
	if r, ok := c.records[jid]; ok {
		r.PendingPfpFetch = true
	}
}

// Get returns a copy of one record.
func (c *Cache) Get(jid string) (Record, bool) {
	r, ok := c.records[jid]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// List returns copies of every record ordered by JID.
func (c *Cache) List() []Record {
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JID < out[j].JID })
	return out
}

// Len returns the number of cached groups.
func (c *Cache) Len() int { return len(c.records) }

func newRecord(g protocol.Group) *Record {
	r := fromGroup(g)
	r.PendingPfpFetch = true
	return r
}

func fromGroup(g protocol.Group) *Record {
	r := &Record{
		JID:         g.JID,
		Subject:     g.Subject,
		Topic:       g.Topic,
		Owner:       g.Owner,
		CreatedAt:   g.CreatedAt,
		Announce:    g.Announce,
		Locked:      g.Locked,
		IsCommunity: g.IsCommunity,
	}
	r.Participants = mergeParticipants(nil, g.Participants)
	return r
}

// mergeParticipants keeps the fetched membership and order, preferring the
// existing entry for ids present in both. Duplicate ids collapse.
func mergeParticipants(existing, fetched []protocol.Participant) []protocol.Participant {
	known := make(map[string]protocol.Participant, len(existing))
	for _, p := range existing {
		known[protocol.NormalizeJID(p.JID)] = p
	}
	out := make([]protocol.Participant, 0, len(fetched))
	added := make(map[string]bool, len(fetched))
	for _, p := range fetched {
		id := protocol.NormalizeJID(p.JID)
		if added[id] {
			continue
		}
		added[id] = true
		if old, ok := known[id]; ok {
			out = append(out, old)
			continue
		}
		p.JID = id
		out = append(out, p)
	}
	return out
}

func indexOf(ps []protocol.Participant, id string) int {
	return slices.IndexFunc(ps, func(p protocol.Participant) bool {
		return protocol.NormalizeJID(p.JID) == id
	})
}

func (r *Record) clone() Record {
	cp := *r
	cp.Participants = slices.Clone(r.Participants)
	if r.ImageURL != nil {
		url := *r.ImageURL
		cp.ImageURL = &url
	}
	return cp
}
