package groups

import (
	"testing"

	"github.com/matheus3301/wprelay/internal/protocol"
)

const self = "5511000000001@s.whatsapp.net"

func group(jid, subject string, participants ...protocol.Participant) protocol.Group {
	return protocol.Group{JID: jid, Subject: subject, Participants: participants}
}

func member(jid string) protocol.Participant {
	return protocol.Participant{JID: jid}
}

func TestResyncInsertsNewAsPending(t *testing.T) {
	c := NewCache()
	removed := c.Resync([]protocol.Group{group("g1@g.us", "One", member(self))})
	if len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
	r, ok := c.Get("g1@g.us")
	if !ok {
		t.Fatal("g1 missing")
	}
	if !r.PendingPfpFetch || r.ImageURL != nil {
		t.Errorf("new record = %+v, want pending with no image", r)
	}
}

func TestResyncPreservesEnrichment(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One")})
	c.SetImage("g1@g.us", "https://pps/g1.jpg")

	for range 3 {
		c.Resync([]protocol.Group{group("g1@g.us", "Renamed")})
	}

	r, _ := c.Get("g1@g.us")
	if r.ImageURL == nil || *r.ImageURL != "https://pps/g1.jpg" {
		t.Errorf("ImageURL = %v, want preserved", r.ImageURL)
	}
	if r.PendingPfpFetch {
		t.Error("PendingPfpFetch reset by resync")
	}
	if r.Subject != "Renamed" {
		t.Errorf("Subject = %q, want Renamed", r.Subject)
	}
}

func TestResyncMergesParticipants(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One", member("a@s.whatsapp.net"), member("b@s.whatsapp.net"))})
	c.ApplyParticipants("g1@g.us", protocol.ParticipantPromote, []string{"a@s.whatsapp.net"}, self)

	c.Resync([]protocol.Group{group("g1@g.us", "One",
		member("a:3@s.whatsapp.net"),
		member("c@s.whatsapp.net"),
	)})

	r, _ := c.Get("g1@g.us")
	if len(r.Participants) != 2 {
		t.Fatalf("participants = %+v, want a and c", r.Participants)
	}
	if r.Participants[0].JID != "a@s.whatsapp.net" || !r.Participants[0].IsAdmin {
		t.Errorf("existing entry for a should win: %+v", r.Participants[0])
	}
	if r.Participants[1].JID != "c@s.whatsapp.net" {
		t.Errorf("second participant = %+v, want c", r.Participants[1])
	}
}

func TestResyncRemovesMissingGroups(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One"), group("g2@g.us", "Two")})
	removed := c.Resync([]protocol.Group{group("g2@g.us", "Two")})
	if len(removed) != 1 || removed[0] != "g1@g.us" {
		t.Errorf("removed = %v, want [g1@g.us]", removed)
	}
	if _, ok := c.Get("g1@g.us"); ok {
		t.Error("g1 should be gone")
	}
}

func TestUpsertOverwritesAndMarksPending(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One")})
	c.SetImage("g1@g.us", "https://pps/g1.jpg")

	c.Upsert([]protocol.Group{group("g1@g.us", "One again"), group("g3@g.us", "Three")})

	for _, jid := range []string{"g1@g.us", "g3@g.us"} {
		r, ok := c.Get(jid)
		if !ok {
			t.Fatalf("%s missing", jid)
		}
		if !r.PendingPfpFetch || r.ImageURL != nil {
			t.Errorf("%s = %+v, want pending without image", jid, r)
		}
	}
}

func TestUpdateOnlyTouchesExisting(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{{JID: "g1@g.us", Subject: "One", Topic: "keep"}})

	subject := "New"
	if !c.Update("g1@g.us", protocol.GroupPatch{Subject: &subject}) {
		t.Error("Update on existing group returned false")
	}
	if c.Update("nope@g.us", protocol.GroupPatch{Subject: &subject}) {
		t.Error("Update must not create records")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	r, _ := c.Get("g1@g.us")
	if r.Subject != "New" || r.Topic != "keep" {
		t.Errorf("record = %+v, want subject New and topic keep", r)
	}
}

func TestParticipantsAddAndRemove(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One", member(self), member("a@s.whatsapp.net"))})

	c.ApplyParticipants("g1@g.us", protocol.ParticipantAdd, []string{"b:7@s.whatsapp.net", "a@s.whatsapp.net"}, self)
	r, _ := c.Get("g1@g.us")
	if len(r.Participants) != 3 {
		t.Fatalf("after add: %+v, want 3 unique participants", r.Participants)
	}
	last := r.Participants[2]
	if last.JID != "b@s.whatsapp.net" || last.IsAdmin || last.IsSuperAdmin {
		t.Errorf("added participant = %+v, want normalized non-admin b", last)
	}

	deleted := c.ApplyParticipants("g1@g.us", protocol.ParticipantRemove, []string{"a@s.whatsapp.net"}, self)
	if deleted {
		t.Fatal("removing another member must not delete the group")
	}
	r, _ = c.Get("g1@g.us")
	if len(r.Participants) != 2 {
		t.Errorf("after remove: %+v", r.Participants)
	}
}

func TestSelfRemovalDeletesGroup(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One", member(self))})

	// Self arrives with a device suffix; it still matches after normalization.
	deleted := c.ApplyParticipants("g1@g.us", protocol.ParticipantRemove, []string{"5511000000001:4@s.whatsapp.net"}, self)
	if !deleted {
		t.Fatal("expected group deletion")
	}
	if _, ok := c.Get("g1@g.us"); ok {
		t.Error("g1 should no longer exist")
	}
}

func TestPendingTargetsSkipsImaged(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{
		group("g1@g.us", "One"),
		group("g2@g.us", "Two"),
		{JID: "c1@g.us", IsCommunity: true},
	})
	c.SetImage("g1@g.us", "https://pps/g1.jpg")

	targets := c.PendingTargets()
	if len(targets) != 2 {
		t.Fatalf("targets = %+v, want c1 and g2", targets)
	}
	if targets[0].JID != "c1@g.us" || !targets[0].IsCommunity {
		t.Errorf("targets[0] = %+v", targets[0])
	}
	if targets[1].JID != "g2@g.us" {
		t.Errorf("targets[1] = %+v", targets[1])
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := NewCache()
	c.Resync([]protocol.Group{group("g1@g.us", "One", member("a@s.whatsapp.net"))})
	r, _ := c.Get("g1@g.us")
	r.Participants[0].IsAdmin = true
	r.Subject = "mutated"

	again, _ := c.Get("g1@g.us")
	if again.Participants[0].IsAdmin || again.Subject != "One" {
		t.Error("Get leaked internal state")
	}
}
