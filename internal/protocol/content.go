package protocol

// Content is the closed set of message payloads the relay understands.
type Content interface {
	Kind() string
	content()
}

// Text is a plain or extended text message.
type Text struct {
	Body string
}

// MediaKind enumerates binary attachment types.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaSticker  MediaKind = "sticker"
	MediaDocument MediaKind = "document"
)

// Media is a binary attachment. Inbound media carries an endpoint-specific
// Ref used by Handle.Download; outbound media carries Data.
type Media struct {
	MediaKind MediaKind
	Data      []byte
	Caption   string
	Mimetype  string
	FileName  string
	// PTT marks audio as a voice note.
	PTT bool
	Ref any
}

// Contact is a shared contact card.
type Contact struct {
	DisplayName string
	VCard       string
}

// Location is a static pin.
type Location struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

// LiveLocation is a live-shared position snapshot.
type LiveLocation struct {
	Latitude  float64
	Longitude float64
	Caption   string
}

// Poll is recognised so it can be skipped deliberately.
type Poll struct {
	Name string
}

// Unsupported is any payload the relay does not classify.
type Unsupported struct {
	Type string
}

func (Text) Kind() string         { return "text" }
func (m Media) Kind() string      { return string(m.MediaKind) }
func (Contact) Kind() string      { return "contact" }
func (Location) Kind() string     { return "location" }
func (LiveLocation) Kind() string { return "live_location" }
func (Poll) Kind() string         { return "poll" }
func (u Unsupported) Kind() string {
	if u.Type == "" {
		return "unknown"
	}
	return u.Type
}

func (Text) content()         {}
func (Media) content()        {}
func (Contact) content()      {}
func (Location) content()     {}
func (LiveLocation) content() {}
func (Poll) content()         {}
func (Unsupported) content()  {}
