package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/OsianJL/questions-app/internal/models"
)

const topTopicsLimit = 5

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalUsers        int64               `json:"total_users"`
	TotalQuestions    int64               `json:"total_questions"`
	AnsweredQuestions int64               `json:"answered_questions"`
	TotalChats        int64               `json:"total_chats"`
	LastActivity      string              `json:"last_activity"`
	TopTopics         []models.TopicCount `json:"top_topics"`
}

// Stats returns platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context(), topTopicsLimit)
	if err != nil {
		h.internalError(w, r, err, "failed to get stats")
		return
	}

	lastActivity := "no activity yet"
	if stats.LastActivity != nil {
		lastActivity = formatTimeAgo(time.Since(*stats.LastActivity))
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:        stats.TotalUsers,
		TotalQuestions:    stats.TotalQuestions,
		AnsweredQuestions: stats.AnsweredQuestions,
		TotalChats:        stats.TotalChats,
		LastActivity:      lastActivity,
		TopTopics:         stats.TopTopics,
	})
}

// formatTimeAgo formats an elapsed duration as a human-readable "X ago" string.
func formatTimeAgo(diff time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return strconv.Itoa(n) + " " + unit + "s ago"
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	default:
		return plural(int(diff.Hours()/24), "day")
	}
}
