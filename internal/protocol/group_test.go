package protocol

import "testing"

func TestNormalizeJID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5511999990000@s.whatsapp.net", "5511999990000@s.whatsapp.net"},
		{"5511999990000:12@s.whatsapp.net", "5511999990000@s.whatsapp.net"},
		{"5511999990000.0:3@s.whatsapp.net", "5511999990000@s.whatsapp.net"},
		{"5511999990000@c.us", "5511999990000@s.whatsapp.net"},
		{"120363000000000000@g.us", "120363000000000000@g.us"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		if got := NormalizeJID(tt.in); got != tt.want {
			t.Errorf("NormalizeJID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentKinds(t *testing.T) {
	tests := []struct {
		c    Content
		want string
	}{
		{Text{Body: "hi"}, "text"},
		{Media{MediaKind: MediaAudio, PTT: true}, "audio"},
		{Media{MediaKind: MediaDocument}, "document"},
		{Contact{}, "contact"},
		{Location{}, "location"},
		{LiveLocation{}, "live_location"},
		{Poll{}, "poll"},
		{Unsupported{}, "unknown"},
		{Unsupported{Type: "reaction"}, "reaction"},
	}
	for _, tt := range tests {
		if got := tt.c.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %q, want %q", tt.c, got, tt.want)
		}
	}
}
