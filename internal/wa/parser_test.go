package wa

import (
	"testing"

	"github.com/matheus3301/wprelay/internal/protocol"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil", nil, "unknown"},
		{"conversation", &waE2E.Message{Conversation: proto.String("hi")}, "text"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("hi")}}, "text"},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, "image"},
		{"video", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{}}, "video"},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, "audio"},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, "sticker"},
		{"document", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{}}, "document"},
		{"contact", &waE2E.Message{ContactMessage: &waE2E.ContactMessage{}}, "contact"},
		{"location", &waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}, "location"},
		{"live location", &waE2E.Message{LiveLocationMessage: &waE2E.LiveLocationMessage{}}, "live_location"},
		{"poll v1", &waE2E.Message{PollCreationMessage: &waE2E.PollCreationMessage{Name: proto.String("q")}}, "poll"},
		{"poll v3", &waE2E.Message{PollCreationMessageV3: &waE2E.PollCreationMessage{Name: proto.String("q")}}, "poll"},
		{"poll vote", &waE2E.Message{PollUpdateMessage: &waE2E.PollUpdateMessage{}}, "poll"},
		{"reaction", &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{}}, "reaction"},
		{"empty", &waE2E.Message{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseContent(tt.msg).Kind()
			if got != tt.want {
				t.Errorf("parseContent().Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseContentDocumentWithCaption(t *testing.T) {
	doc := &waE2E.DocumentMessage{
		FileName: proto.String("invoice.pdf"),
		Mimetype: proto.String("application/pdf"),
		Caption:  proto.String("March"),
	}
	msg := &waE2E.Message{DocumentWithCaptionMessage: &waE2E.FutureProofMessage{
		Message: &waE2E.Message{DocumentMessage: doc},
	}}

	media, ok := parseContent(msg).(protocol.Media)
	if !ok {
		t.Fatalf("got %T, want Media", parseContent(msg))
	}
	if media.MediaKind != protocol.MediaDocument || media.FileName != "invoice.pdf" || media.Caption != "March" {
		t.Errorf("media = %+v", media)
	}
	if media.Ref != doc {
		t.Error("Ref does not point at the inner document")
	}
}

func TestParseContentVoiceNote(t *testing.T) {
	msg := &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true), Mimetype: proto.String("audio/ogg; codecs=opus")}}
	media := parseContent(msg).(protocol.Media)
	if !media.PTT {
		t.Error("PTT = false, want true")
	}
	if _, ok := media.Ref.(whatsmeow.DownloadableMessage); !ok {
		t.Error("Ref is not downloadable")
	}
}

func TestParseContentLocation(t *testing.T) {
	msg := &waE2E.Message{LocationMessage: &waE2E.LocationMessage{
		DegreesLatitude:  proto.Float64(-3.73),
		DegreesLongitude: proto.Float64(-38.52),
		Name:             proto.String("Office"),
	}}
	loc := parseContent(msg).(protocol.Location)
	if loc.Latitude != -3.73 || loc.Longitude != -38.52 || loc.Name != "Office" {
		t.Errorf("location = %+v", loc)
	}
}

func TestDefaultMimetype(t *testing.T) {
	tests := []struct {
		media protocol.Media
		want  string
	}{
		{protocol.Media{MediaKind: protocol.MediaImage}, "image/jpeg"},
		{protocol.Media{MediaKind: protocol.MediaVideo}, "video/mp4"},
		{protocol.Media{MediaKind: protocol.MediaAudio, PTT: true}, "audio/ogg; codecs=opus"},
		{protocol.Media{MediaKind: protocol.MediaAudio}, "audio/mpeg"},
		{protocol.Media{MediaKind: protocol.MediaSticker}, "image/webp"},
		{protocol.Media{MediaKind: protocol.MediaDocument}, "application/octet-stream"},
		{protocol.Media{MediaKind: protocol.MediaDocument, Mimetype: "application/pdf"}, "application/pdf"},
	}
	for _, tt := range tests {
		if got := defaultMimetype(tt.media); got != tt.want {
			t.Errorf("defaultMimetype(%+v) = %q, want %q", tt.media, got, tt.want)
		}
	}
}

func TestMediaMessage(t *testing.T) {
	up := whatsmeow.UploadResponse{URL: "https://mmg", DirectPath: "/v/t62", FileLength: 42}

	voice := mediaMessage(protocol.Media{MediaKind: protocol.MediaAudio, PTT: true}, up)
	if voice.GetAudioMessage() == nil || !voice.GetAudioMessage().GetPTT() {
		t.Errorf("voice note = %v", voice)
	}
	if voice.GetAudioMessage().GetFileLength() != 42 {
		t.Errorf("FileLength = %d, want 42", voice.GetAudioMessage().GetFileLength())
	}

	doc := mediaMessage(protocol.Media{MediaKind: protocol.MediaDocument, Caption: "Q3"}, up)
	if doc.GetDocumentMessage().GetFileName() != "file" || doc.GetDocumentMessage().GetCaption() != "Q3" {
		t.Errorf("document = %v", doc.GetDocumentMessage())
	}

	sticker := mediaMessage(protocol.Media{MediaKind: protocol.MediaSticker}, up)
	if sticker.GetStickerMessage().GetMimetype() != "image/webp" {
		t.Errorf("sticker mimetype = %q", sticker.GetStickerMessage().GetMimetype())
	}
}

func TestPlainMessage(t *testing.T) {
	msg, err := plainMessage(protocol.Text{Body: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if msg.GetConversation() != "hello" {
		t.Errorf("Conversation = %q", msg.GetConversation())
	}

	if _, err := plainMessage(protocol.Poll{Name: "q"}); err == nil {
		t.Error("expected error for poll content")
	}
}

func TestUploadType(t *testing.T) {
	if uploadType(protocol.MediaSticker) != whatsmeow.MediaImage {
		t.Error("stickers upload as images")
	}
	if uploadType(protocol.MediaAudio) != whatsmeow.MediaAudio {
		t.Error("audio upload type")
	}
}
