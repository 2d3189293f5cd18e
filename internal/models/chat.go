package models

import "time"

// Chat is a private conversation between two users.
// User1ID is always the smaller of the two ids.
type Chat struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasParticipant reports whether userID takes part in the chat.
func (c *Chat) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OrderedPair returns a and b with the smaller id first.
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// ChatMessage is a single message within a chat.
type ChatMessage struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
