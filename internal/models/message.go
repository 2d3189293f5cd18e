package models

import "time"

// PublicMessage is a topic-tagged question that any user may answer once.
type PublicMessage struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	Tematica    string    `json:"tematica"`
	Idioma      string    `json:"idioma"`
	Content     string    `json:"content"`
	Reply       *string   `json:"reply,omitempty"`
	ResponderID *int64    `json:"responder_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answered reports whether someone has replied.
func (m *PublicMessage) Answered() bool {
	return m.Reply != nil
}

// MessageFilter narrows a public message listing. Empty fields match everything.
type MessageFilter struct {
	Tematica string
	Idioma   string
	Answered *bool
}
