package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/OsianJL/questions-app/internal/metrics"
	"github.com/OsianJL/questions-app/internal/models"
	"github.com/OsianJL/questions-app/internal/store"
)

// CreateMessageRequest is the body of POST /message.
type CreateMessageRequest struct {
	Tematica string `json:"tematica"`
	Idioma   string `json:"idioma"`
	Content  string `json:"content"`
}

// ReplyRequest is the body of PATCH /message/{id}.
type ReplyRequest struct {
	Reply string `json:"reply"`
}

// MessageView is a public message as seen by one caller.
// Reply and ResponderID are only filled in for the author.
type MessageView struct {
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

func viewMessage(m *models.PublicMessage, caller int64) MessageView {
	v := MessageView{
		ID:         m.ID,
		AuthorID:   m.AuthorID,
		Tematica:   m.Tematica,
		Idioma:     m.Idioma,
		Content:    m.Content,
		Contestado: m.Answered(),
		CreatedAt:  m.CreatedAt,
	}
	if m.AuthorID == caller {
		v.Reply = m.Reply
		v.ResponderID = m.ResponderID
	}
	return v
}

// CreateMessage posts a public question.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tematica := sanitizeName(req.Tematica)
	idioma := sanitizeName(req.Idioma)
	content := sanitizeText(req.Content)
	if tematica == "" || idioma == "" || content == "" {
		h.Error(w, http.StatusBadRequest, "tematica, idioma and content are required")
		return
	}
	if tooLong(content) {
		h.Error(w, http.StatusBadRequest, "content too long")
		return
	}

	caller := callerID(r)
	m, err := h.store.CreateMessage(r.Context(), caller, tematica, idioma, content)
	if err != nil {
		h.internalError(w, r, err, "failed to create message")
		return
	}

	metrics.MessagesPosted.Inc()
	h.JSON(w, http.StatusCreated, viewMessage(m, caller))
}

// ListMessages lists public questions, newest first.
// Query: tematica, idioma, contestado (bool).
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.MessageFilter{
		Tematica: q.Get("tematica"),
		Idioma:   q.Get("idioma"),
	}
	if raw := q.Get("contestado"); raw != "" {
		answered, err := strconv.ParseBool(raw)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "contestado must be true or false")
			return
		}
		filter.Answered = &answered
	}

	msgs, err := h.store.ListMessages(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, err, "failed to list messages")
		return
	}

	caller := callerID(r)
	views := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, viewMessage(&msgs[i], caller))
	}
	h.JSON(w, http.StatusOK, views)
}

// loadMessage parses {id} and fetches the message, replying on failure.
func (h *Handler) loadMessage(w http.ResponseWriter, r *http.Request) (*models.PublicMessage, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid message id")
		return nil, false
	}
	m, err := h.store.GetMessage(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err, "failed to get message")
		return nil, false
	}
	if m == nil {
		h.Error(w, http.StatusNotFound, "message not found")
		return nil, false
	}
	return m, true
}

// GetMessage returns one public question.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadMessage(w, r)
	if !ok {
		return
	}
	h.JSON(w, http.StatusOK, viewMessage(m, callerID(r)))
}

// ReplyToMessage answers someone else's question. Each question takes one reply.
func (h *Handler) ReplyToMessage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadMessage(w, r)
	if !ok {
		return
	}

	var req ReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply := sanitizeText(req.Reply)
	if reply == "" {
		h.Error(w, http.StatusBadRequest, "reply is required")
		return
	}
	if tooLong(reply) {
		h.Error(w, http.StatusBadRequest, "reply too long")
		return
	}

	caller := callerID(r)
	if m.AuthorID == caller {
		h.Error(w, http.StatusForbidden, "you cannot answer your own question")
		return
	}

	updated, err := h.store.ReplyToMessage(r.Context(), m.ID, caller, reply)
	switch {
	case errors.Is(err, store.ErrConflict):
		h.Error(w, http.StatusConflict, "message already answered")
		return
	case errors.Is(err, store.ErrNotFound):
		h.Error(w, http.StatusNotFound, "message not found")
		return
	case err != nil:
		h.internalError(w, r, err, "failed to reply to message")
		return
	}

	metrics.RepliesPosted.Inc()
	h.JSON(w, http.StatusOK, viewMessage(updated, caller))
}

// DeleteMessage removes a question. Only its author may do so.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadMessage(w, r)
	if !ok {
		return
	}
	if m.AuthorID != callerID(r) {
		h.Error(w, http.StatusForbidden, "only the author can delete this message")
		return
	}

	err := h.store.DeleteMessage(r.Context(), m.ID)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to delete message")
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Message: "message deleted"})
}
