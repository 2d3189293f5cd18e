package questions

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Chat is a private conversation between two users.
type Chat struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the participant that is not userID.
func (ch Chat) Other(userID int64) int64 {
	if ch.User1ID == userID {
		return ch.User2ID
	}
	return ch.User1ID
}

// ChatMessage is a single message within a chat.
type ChatMessage struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func chatPath(chatID int64) string {
	return "/chat/" + strconv.FormatInt(chatID, 10)
}

// ListChats lists the chats the authenticated user participates in.
func (c *Client) ListChats(ctx context.Context, token string) ([]Chat, error) {
	var resp []Chat
	if err := c.callAuth(ctx, http.MethodGet, "/chats", nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// InitiateChat opens a chat with otherUserID. The server returns the
// existing chat when the pair already has one.
func (c *Client) InitiateChat(ctx context.Context, token string, otherUserID int64) (*Chat, error) {
	body := struct {
		OtherUserID int64 `json:"other_user_id"`
	}{OtherUserID: otherUserID}

	var resp Chat
	if err := c.callAuth(ctx, http.MethodPost, "/chat", nil, body, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetChatMessages lists the messages of a chat in the order they were sent.
func (c *Client) GetChatMessages(ctx context.Context, token string, chatID int64) ([]ChatMessage, error) {
	var resp []ChatMessage
	if err := c.callAuth(ctx, http.MethodGet, chatPath(chatID), nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendChatMessage posts a message to a chat.
func (c *Client) SendChatMessage(ctx context.Context, token string, chatID int64, content string) (*ChatMessage, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: content}

	var resp ChatMessage
	if err := c.callAuth(ctx, http.MethodPost, chatPath(chatID), nil, body, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
