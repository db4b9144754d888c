package domain

import "time"

// DailyPoll is the single poll of one calendar day in the reference timezone
type DailyPoll struct {
	ID        string         `json:"id"`
	PollDate  string         `json:"poll_date"` // YYYY-MM-DD
	QuizID    string         `json:"quiz_id"`
	Question  string         `json:"question"`
	Choices   []string       `json:"choices"`
	Results   map[string]int `json:"results"`
	CreatedAt time.Time      `json:"created_at"`
}

// Vote links a user to a poll answer. At most one per (poll, user).
type Vote struct {
	PollID    string    `json:"poll_id"`
	Username  string    `json:"username"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteRequest represents a poll submission form
type VoteRequest struct {
	PollID string `json:"poll_id"`
	Answer string `json:"answer"`
}

// PollView is today's poll plus the countdown to the next reset
type PollView struct {
	Poll             *DailyPoll `json:"poll"`
	SecondsRemaining int64      `json:"seconds_remaining"`
}
