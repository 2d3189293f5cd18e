package questions

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PublicMessage is a topic-tagged question visible to every user.
// Reply and ResponderID are only populated when the caller is the author.
type PublicMessage struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	Tematica    string    `json:"tematica"`
	Idioma      string    `json:"idioma"`
	Content     string    `json:"content"`
	Contestado  bool      `json:"contestado"`
	Reply       *string   `json:"reply,omitempty"`
	ResponderID *int64    `json:"responder_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreatePublicMessageRequest is the request body for posting a question.
type CreatePublicMessageRequest struct {
	Tematica string `json:"tematica"`
	Idioma   string `json:"idioma"`
	Content  string `json:"content"`
}

// MessageFilter narrows ListPublicMessages. Zero fields are not sent.
type MessageFilter struct {
	Tematica   string
	Idioma     string
	Contestado *bool
}

// Values encodes the filter as query parameters.
func (f *MessageFilter) Values() url.Values {
	v := url.Values{}
	if f == nil {
		return v
	}
	if f.Tematica != "" {
		v.Set("tematica", f.Tematica)
	}
	if f.Idioma != "" {
		v.Set("idioma", f.Idioma)
	}
	if f.Contestado != nil {
		v.Set("contestado", strconv.FormatBool(*f.Contestado))
	}
	return v
}

// Bool returns a pointer to b, for building a MessageFilter.
func Bool(b bool) *bool {
	return &b
}

func messagePath(messageID int64) string {
	return "/message/" + strconv.FormatInt(messageID, 10)
}

// CreatePublicMessage posts a new question.
func (c *Client) CreatePublicMessage(ctx context.Context, token, tematica, idioma, content string) (*PublicMessage, error) {
	req := CreatePublicMessageRequest{Tematica: tematica, Idioma: idioma, Content: content}

	var resp PublicMessage
	if err := c.callAuth(ctx, http.MethodPost, "/message", nil, req, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPublicMessages lists questions, newest first. filter may be nil.
func (c *Client) ListPublicMessages(ctx context.Context, token string, filter *MessageFilter) ([]PublicMessage, error) {
	var resp []PublicMessage
	if err := c.callAuth(ctx, http.MethodGet, "/message", filter.Values(), nil, token, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPublicMessageDetail fetches a single question.
func (c *Client) GetPublicMessageDetail(ctx context.Context, token string, messageID int64) (*PublicMessage, error) {
	var resp PublicMessage
	if err := c.callAuth(ctx, http.MethodGet, messagePath(messageID), nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReplyToPublicMessage answers someone else's question. The server rejects
// replies from the author.
func (c *Client) ReplyToPublicMessage(ctx context.Context, token string, messageID int64, reply string) (*PublicMessage, error) {
	body := struct {
		Reply string `json:"reply"`
	}{Reply: reply}

	var resp PublicMessage
	if err := c.callAuth(ctx, http.MethodPatch, messagePath(messageID), nil, body, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePublicMessage deletes a question. Only the author may do this.
func (c *Client) DeletePublicMessage(ctx context.Context, token string, messageID int64) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.callAuth(ctx, http.MethodDelete, messagePath(messageID), nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
