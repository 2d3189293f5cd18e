package models

import "time"

// Stats summarizes platform activity.
type Stats struct {
	TotalUsers        int64
	TotalQuestions    int64
	AnsweredQuestions int64
	TotalChats        int64
	LastActivity      *time.Time // newest question, nil when there are none
	TopTopics         []TopicCount
}

// TopicCount is the number of questions posted under one tematica.
type TopicCount struct {
	Tematica string `json:"tematica"`
	Count    int64  `json:"count"`
}
