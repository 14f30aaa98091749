package model

import (
	"time"
)

// Message is a chat message. Two messages are equal when they share an
// identifier and update time; parts are not compared.
//
// The user subscription carries no message payloads, so nothing in this
// module produces Message, MessagePart or Attachment values yet. A joined
// room exposes only Room.LastMessageAt.
type Message struct {
	Identifier int64         `json:"id"`
	Sender     *User         `json:"sender,omitempty"`
	RoomID     string        `json:"room_id"`
	Parts      []MessagePart `json:"parts"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	DeletedAt  *time.Time    `json:"deleted_at,omitempty"`
}

// Equal reports whether other is the same revision of the same message.
func (m Message) Equal(other Message) bool {
	return m.Identifier == other.Identifier && m.UpdatedAt.Equal(other.UpdatedAt)
}

// MessagePartKind distinguishes message part payloads.
type MessagePartKind string

const (
	PartInline     MessagePartKind = "inline"
	PartURL        MessagePartKind = "url"
	PartAttachment MessagePartKind = "attachment"
)

// Attachment is an uploaded file referenced by a message part.
type Attachment struct {
	Identifier string         `json:"id"`
	Name       string         `json:"name"`
	Size       int64          `json:"size"`
	CustomData map[string]any `json:"custom_data,omitempty"`
	// DownloadURL, RefreshURL and Expiration are volatile: the server
	// re-signs them on every fetch.
	DownloadURL string    `json:"download_url,omitempty"`
	RefreshURL  string    `json:"refresh_url,omitempty"`
	Expiration  time.Time `json:"expiration,omitempty"`
}

// MessagePart is one typed part of a message.
type MessagePart struct {
	Kind       MessagePartKind `json:"kind"`
	MIMEType   string          `json:"type"`
	Content    string          `json:"content,omitempty"`
	URL        string          `json:"url,omitempty"`
	Attachment *Attachment     `json:"attachment,omitempty"`
}

// Equal compares the payload of two parts. Volatile attachment URLs and
// expirations are ignored.
func (p MessagePart) Equal(other MessagePart) bool {
	if p.Kind != other.Kind || p.MIMEType != other.MIMEType {
		return false
	}
	switch p.Kind {
	case PartInline:
		return p.Content == other.Content
	case PartURL:
		return p.URL == other.URL
	case PartAttachment:
		a, b := p.Attachment, other.Attachment
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return a.Identifier == b.Identifier &&
			a.Name == b.Name &&
			a.Size == b.Size &&
			customDataEqual(a.CustomData, b.CustomData)
	default:
		return p.Content == other.Content && p.URL == other.URL
	}
}
