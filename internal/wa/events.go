package wa

import (
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/wprelay/internal/protocol"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// handleEvent translates whatsmeow events into protocol events. Lifecycle
// terminations go through close so Closed is emitted exactly once.
func (h *handle) handleEvent(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		h.deliver(protocol.Open{})
	case *events.PairSuccess:
		h.logger.Info("device paired", zap.String("jid", evt.ID.String()))
		h.deliver(protocol.PairSuccess{JID: evt.ID.ToNonAD().String()})
		h.deliver(protocol.CredsChanged{})
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		h.close(protocol.ReasonConnectionLost, nil)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()), zap.Bool("on_connect", evt.OnConnect))
		h.close(loggedOutReason(evt), nil)
	case *events.ConnectFailure:
		h.logger.Warn("WhatsApp connect failure", zap.Int("code", int(evt.Reason)), zap.String("message", evt.Message))
		h.close(connectFailureReason(evt.Reason), fmt.Errorf("connect failure %d: %s", int(evt.Reason), evt.Message))
	case *events.ClientOutdated:
		h.close(protocol.ReasonProtocolMismatch, errors.New("client outdated"))
	case *events.StreamReplaced:
		h.close(protocol.ReasonConnectionReplaced, nil)
	case *events.TemporaryBan:
		h.logger.Warn("account temporarily banned", zap.String("ban", evt.String()))
		h.close(protocol.ReasonUnknown, errors.New(evt.String()))
	case *events.Message:
		h.deliver(protocol.MessageBatch{Live: true, Messages: []protocol.Message{liveMessage(evt)}})
	case *events.HistorySync:
		if msgs := historyMessages(evt); len(msgs) > 0 {
			h.deliver(protocol.MessageBatch{Live: false, Messages: msgs})
		}
	case *events.JoinedGroup:
		h.deliver(protocol.GroupUpsert{Groups: []protocol.Group{convertGroup(&evt.GroupInfo)}})
	case *events.GroupInfo:
		h.handleGroupInfo(evt)
	}
}

func (h *handle) handleGroupInfo(evt *events.GroupInfo) {
	jid := evt.JID.String()

	var patch protocol.GroupPatch
	changed := false
	if evt.Name != nil {
		patch.Subject = &evt.Name.Name
		changed = true
	}
	if evt.Topic != nil {
		patch.Topic = &evt.Topic.Topic
		changed = true
	}
	if evt.Announce != nil {
		patch.Announce = &evt.Announce.IsAnnounce
		changed = true
	}
	if evt.Locked != nil {
		patch.Locked = &evt.Locked.IsLocked
		changed = true
	}
	if changed {
		h.deliver(protocol.GroupUpdate{JID: jid, Patch: patch})
	}

	membership := []struct {
		action protocol.ParticipantAction
		jids   []types.JID
	}{
		{protocol.ParticipantAdd, evt.Join},
		{protocol.ParticipantRemove, evt.Leave},
		{protocol.ParticipantPromote, evt.Promote},
		{protocol.ParticipantDemote, evt.Demote},
	}
	for _, m := range membership {
		if len(m.jids) == 0 {
			continue
		}
		h.deliver(protocol.GroupParticipants{JID: jid, Action: m.action, Participants: jidStrings(m.jids)})
	}
}

// loggedOutReason separates a credential rejected on connect from a logout
// issued while the session was live.
func loggedOutReason(evt *events.LoggedOut) protocol.Reason {
	if evt.OnConnect && evt.Reason == events.ConnectFailureLoggedOut {
		return protocol.ReasonUnauthorized
	}
	return protocol.ReasonLoggedOut
}

func connectFailureReason(r events.ConnectFailureReason) protocol.Reason {
	switch {
	case r == events.ConnectFailureLoggedOut:
		return protocol.ReasonUnauthorized
	case r.IsLoggedOut():
		return protocol.ReasonLoggedOut
	case r == events.ConnectFailureClientOutdated:
		return protocol.ReasonProtocolMismatch
	case r == events.ConnectFailureBadUserAgent, r == events.ConnectFailureClientUnknown:
		return protocol.ReasonBadSession
	default:
		return protocol.ReasonUnknown
	}
}

func liveMessage(evt *events.Message) protocol.Message {
	return protocol.Message{
		ID:        evt.Info.ID,
		ChatJID:   evt.Info.Chat.String(),
		SenderJID: protocol.NormalizeJID(evt.Info.Sender.String()),
		PushName:  evt.Info.PushName,
		FromMe:    evt.Info.IsFromMe,
		Timestamp: evt.Info.Timestamp,
		Content:   parseContent(evt.Message),
	}
}

func historyMessages(evt *events.HistorySync) []protocol.Message {
	data := evt.Data
	if data == nil {
		return nil
	}

	var msgs []protocol.Message
	for _, conv := range data.GetConversations() {
		chatJID := conv.GetID()
		for _, hm := range conv.GetMessages() {
			wmsg := hm.GetMessage()
			if wmsg == nil || wmsg.GetMessage() == nil {
				continue
			}
			key := wmsg.GetKey()
			sender := key.GetParticipant()
			if sender == "" && !key.GetFromMe() {
				sender = chatJID
			}
			msgs = append(msgs, protocol.Message{
				ID:        key.GetID(),
				ChatJID:   chatJID,
				SenderJID: protocol.NormalizeJID(sender),
				PushName:  wmsg.GetPushName(),
				FromMe:    key.GetFromMe(),
				Timestamp: time.Unix(int64(wmsg.GetMessageTimestamp()), 0),
				Content:   parseContent(wmsg.GetMessage()),
			})
		}
	}
	return msgs
}

func convertGroup(info *types.GroupInfo) protocol.Group {
	g := protocol.Group{
		JID:         info.JID.String(),
		Subject:     info.GroupName.Name,
		Topic:       info.GroupTopic.Topic,
		CreatedAt:   info.GroupCreated,
		Announce:    info.GroupAnnounce.IsAnnounce,
		Locked:      info.GroupLocked.IsLocked,
		IsCommunity: info.GroupParent.IsParent,
	}
	if !info.OwnerJID.IsEmpty() {
		g.Owner = info.OwnerJID.ToNonAD().String()
	}
	g.Participants = make([]protocol.Participant, 0, len(info.Participants))
	for _, p := range info.Participants {
		g.Participants = append(g.Participants, protocol.Participant{
			JID:          p.JID.ToNonAD().String(),
			IsAdmin:      p.IsAdmin,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}
	return g
}

func jidStrings(jids []types.JID) []string {
	out := make([]string, len(jids))
	for i, j := range jids {
		out[i] = j.ToNonAD().String()
	}
	return out
}
