package handlers

import (
	"net/http"

	"github.com/OsianJL/questions-app/internal/metrics"
	"github.com/OsianJL/questions-app/internal/models"
)

// InitiateChatRequest is the body of POST /chat.
type InitiateChatRequest struct {
	OtherUserID int64 `json:"other_user_id"`
}

// SendChatMessageRequest is the body of POST /chat/{id}.
type SendChatMessageRequest struct {
	Content string `json:"content"`
}

// ListChats lists the caller's chats, most recent first.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.ListChats(r.Context(), callerID(r))
	if err != nil {
		h.internalError(w, r, err, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	h.JSON(w, http.StatusOK, chats)
}

// InitiateChat returns the chat between the caller and another user,
// creating it on first contact.
func (h *Handler) InitiateChat(w http.ResponseWriter, r *http.Request) {
	var req InitiateChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	caller := callerID(r)
	if req.OtherUserID <= 0 {
		h.Error(w, http.StatusBadRequest, "other_user_id is required")
		return
	}
	if req.OtherUserID == caller {
		h.Error(w, http.StatusBadRequest, "cannot start a chat with yourself")
		return
	}

	other, err := h.store.GetUserByID(r.Context(), req.OtherUserID)
	if err != nil {
		h.internalError(w, r, err, "failed to look up user")
		return
	}
	if other == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	chat, created, err := h.store.GetOrCreateChat(r.Context(), caller, other.ID)
	if err != nil {
		h.internalError(w, r, err, "failed to create chat")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.JSON(w, status, chat)
}

// loadChat parses {id} and fetches a chat the caller takes part in.
func (h *Handler) loadChat(w http.ResponseWriter, r *http.Request) (*models.Chat, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid chat id")
		return nil, false
	}
	chat, err := h.store.GetChat(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err, "failed to get chat")
		return nil, false
	}
	if chat == nil {
		h.Error(w, http.StatusNotFound, "chat not found")
		return nil, false
	}
	if !chat.HasParticipant(callerID(r)) {
		h.Error(w, http.StatusForbidden, "not a participant of this chat")
		return nil, false
	}
	return chat, true
}

// GetChatMessages lists a chat's messages in the order they were sent.
func (h *Handler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	chat, ok := h.loadChat(w, r)
	if !ok {
		return
	}

	msgs, err := h.store.ListChatMessages(r.Context(), chat.ID)
	if err != nil {
		h.internalError(w, r, err, "failed to list chat messages")
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	h.JSON(w, http.StatusOK, msgs)
}

// SendChatMessage appends a message to a chat.
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	chat, ok := h.loadChat(w, r)
	if !ok {
		return
	}

	var req SendChatMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	content := sanitizeText(req.Content)
	if content == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if tooLong(content) {
		h.Error(w, http.StatusBadRequest, "content too long")
		return
	}

	msg, err := h.store.AddChatMessage(r.Context(), chat.ID, callerID(r), content)
	if err != nil {
		h.internalError(w, r, err, "failed to send message")
		return
	}

	metrics.ChatMessagesSent.Inc()
	h.JSON(w, http.StatusCreated, msg)
}
