package domain

// Realtime event names pushed to viewers
const (
	EventUpdateTimes = "update_times"
	EventNewComment  = "new_comment"
	EventLikeQuiz    = "like_quiz"
	EventUpdateTimer = "update_timer"
	EventPollResults = "poll_results"
)

// LikeEvent is published after a like toggle
type LikeEvent struct {
	QuizID   string `json:"quiz_id"`
	Username string `json:"username"`
	Delta    int    `json:"delta"`
	Likes    int    `json:"likes"`
}

// TimerEvent carries the seconds left until the daily poll resets
type TimerEvent struct {
	SecondsRemaining int64 `json:"seconds_remaining"`
}
