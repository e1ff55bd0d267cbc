package chat

// User is a room participant. A user is created once per session and never
// mutated; ID is the equality key.
type User struct {
	ID          string `json:"id" toml:"id"`
	DisplayName string `json:"name" toml:"name"`
	AvatarRef   string `json:"avatar" toml:"avatar"`
}

// LinkPreview is the metadata returned by the external preview lookup.
type LinkPreview struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageRef    string `json:"image"`
	Domain      string `json:"domain"`
}

// Message is a single direct message. ID is unique across the whole log and
// is the dedup key for copies of the same send arriving from several tabs.
type Message struct {
	ID            string       `json:"id"`
	SenderID      string       `json:"from"`
	RecipientID   string       `json:"to"`
	Text          string       `json:"text"`
	SentAtEpochMs int64        `json:"timestamp"`
	LinkPreview   *LinkPreview `json:"linkPreview,omitempty"`
}

// Between reports whether m was exchanged between a and b, in either direction.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.RecipientID == b) ||
		(m.SenderID == b && m.RecipientID == a)
}
