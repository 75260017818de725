package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/wprelay/internal/protocol"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

// buildMessage turns an outbound payload into a whatsmeow message,
// uploading attachment bytes first.
func (h *handle) buildMessage(ctx context.Context, content protocol.Content) (*waE2E.Message, error) {
	media, ok := content.(protocol.Media)
	if !ok {
		return plainMessage(content)
	}
	if len(media.Data) == 0 {
		return nil, fmt.Errorf("%s attachment has no data", media.MediaKind)
	}
	uploaded, err := h.client.Upload(ctx, media.Data, uploadType(media.MediaKind))
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", media.MediaKind, err)
	}
	return mediaMessage(media, uploaded), nil
}

func plainMessage(content protocol.Content) (*waE2E.Message, error) {
	switch c := content.(type) {
	case protocol.Text:
		return &waE2E.Message{Conversation: proto.String(c.Body)}, nil
	case protocol.Contact:
		return &waE2E.Message{ContactMessage: &waE2E.ContactMessage{
			DisplayName: proto.String(c.DisplayName),
			Vcard:       proto.String(c.VCard),
		}}, nil
	case protocol.Location:
		return &waE2E.Message{LocationMessage: &waE2E.LocationMessage{
			DegreesLatitude:  proto.Float64(c.Latitude),
			DegreesLongitude: proto.Float64(c.Longitude),
			Name:             optString(c.Name),
			Address:          optString(c.Address),
		}}, nil
	case protocol.LiveLocation:
		return &waE2E.Message{LiveLocationMessage: &waE2E.LiveLocationMessage{
			DegreesLatitude:  proto.Float64(c.Latitude),
			DegreesLongitude: proto.Float64(c.Longitude),
			Caption:          optString(c.Caption),
		}}, nil
	default:
		return nil, fmt.Errorf("cannot send %s content", content.Kind())
	}
}

func uploadType(kind protocol.MediaKind) whatsmeow.MediaType {
	switch kind {
	case protocol.MediaVideo:
		return whatsmeow.MediaVideo
	case protocol.MediaAudio:
		return whatsmeow.MediaAudio
	case protocol.MediaDocument:
		return whatsmeow.MediaDocument
	default:
		return whatsmeow.MediaImage
	}
}

func defaultMimetype(m protocol.Media) string {
	if m.Mimetype != "" {
		return m.Mimetype
	}
	switch m.MediaKind {
	case protocol.MediaImage:
		return "image/jpeg"
	case protocol.MediaVideo:
		return "video/mp4"
	case protocol.MediaAudio:
		if m.PTT {
			return "audio/ogg; codecs=opus"
		}
		return "audio/mpeg"
	case protocol.MediaSticker:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// mediaMessage builds the attachment message for an upload result.
func mediaMessage(m protocol.Media, up whatsmeow.UploadResponse) *waE2E.Message {
	mimetype := proto.String(defaultMimetype(m))
	length := proto.Uint64(up.FileLength)

	switch m.MediaKind {
	case protocol.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Mimetype: mimetype, Caption: optString(m.Caption),
		}}
	case protocol.MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Mimetype: mimetype, PTT: proto.Bool(m.PTT),
		}}
	case protocol.MediaSticker:
		return &waE2E.Message{StickerMessage: &waE2E.StickerMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Mimetype: mimetype,
		}}
	case protocol.MediaDocument:
		name := m.FileName
		if name == "" {
			name = "file"
		}
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Mimetype: mimetype, FileName: proto.String(name),
			Title: proto.String(name), Caption: optString(m.Caption),
		}}
	default:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Mimetype: mimetype, Caption: optString(m.Caption),
		}}
	}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return proto.String(s)
}
