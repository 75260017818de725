package wa

import (
	"github.com/matheus3301/wprelay/internal/protocol"
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// parseContent classifies a whatsmeow message into a protocol payload.
// Media keeps the received proto as Ref so it can be downloaded later.
func parseContent(msg *waE2E.Message) protocol.Content {
	if msg == nil {
		return protocol.Unsupported{}
	}
	if inner := msg.GetDocumentWithCaptionMessage().GetMessage(); inner != nil {
		msg = inner
	}

	switch {
	case msg.GetConversation() != "":
		return protocol.Text{Body: msg.GetConversation()}
	case msg.GetExtendedTextMessage() != nil:
		return protocol.Text{Body: msg.GetExtendedTextMessage().GetText()}
	case msg.GetImageMessage() != nil:
		m := msg.GetImageMessage()
		return protocol.Media{MediaKind: protocol.MediaImage, Caption: m.GetCaption(), Mimetype: m.GetMimetype(), Ref: m}
	case msg.GetVideoMessage() != nil:
		m := msg.GetVideoMessage()
		return protocol.Media{MediaKind: protocol.MediaVideo, Caption: m.GetCaption(), Mimetype: m.GetMimetype(), Ref: m}
	case msg.GetAudioMessage() != nil:
		m := msg.GetAudioMessage()
		return protocol.Media{MediaKind: protocol.MediaAudio, Mimetype: m.GetMimetype(), PTT: m.GetPTT(), Ref: m}
	case msg.GetStickerMessage() != nil:
		m := msg.GetStickerMessage()
		return protocol.Media{MediaKind: protocol.MediaSticker, Mimetype: m.GetMimetype(), Ref: m}
	case msg.GetDocumentMessage() != nil:
		m := msg.GetDocumentMessage()
		name := m.GetFileName()
		if name == "" {
			name = m.GetTitle()
		}
		return protocol.Media{MediaKind: protocol.MediaDocument, Caption: m.GetCaption(), Mimetype: m.GetMimetype(), FileName: name, Ref: m}
	case msg.GetContactMessage() != nil:
		m := msg.GetContactMessage()
		return protocol.Contact{DisplayName: m.GetDisplayName(), VCard: m.GetVcard()}
	case msg.GetLocationMessage() != nil:
		m := msg.GetLocationMessage()
		return protocol.Location{
			Latitude:  m.GetDegreesLatitude(),
			Longitude: m.GetDegreesLongitude(),
			Name:      m.GetName(),
			Address:   m.GetAddress(),
		}
	case msg.GetLiveLocationMessage() != nil:
		m := msg.GetLiveLocationMessage()
		return protocol.LiveLocation{
			Latitude:  m.GetDegreesLatitude(),
			Longitude: m.GetDegreesLongitude(),
			Caption:   m.GetCaption(),
		}
	case msg.GetPollCreationMessage() != nil:
		return protocol.Poll{Name: msg.GetPollCreationMessage().GetName()}
	case msg.GetPollCreationMessageV2() != nil:
		return protocol.Poll{Name: msg.GetPollCreationMessageV2().GetName()}
	case msg.GetPollCreationMessageV3() != nil:
		return protocol.Poll{Name: msg.GetPollCreationMessageV3().GetName()}
	case msg.GetPollUpdateMessage() != nil:
		return protocol.Poll{}
	case msg.GetReactionMessage() != nil:
		return protocol.Unsupported{Type: "reaction"}
	case msg.GetProtocolMessage() != nil:
		return protocol.Unsupported{Type: "protocol"}
	default:
		return protocol.Unsupported{}
	}
}
