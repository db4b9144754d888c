package domain

import "time"

// Question is one multiple-choice question of a quiz
type Question struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Answer  string   `json:"answer"`
}

// Quiz represents an authored quiz with its denormalized like state
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Questions []Question `json:"questions"`
	Likes     int        `json:"likes"`
	LikedBy   []string   `json:"liked_by"`
	Comments  []Comment  `json:"comments,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Comment is a single comment on a quiz
type Comment struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quiz_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadQuizRequest carries parallel question/choices/answer arrays from the upload form.
// Choices[i] is a comma separated list for Questions[i].
type UploadQuizRequest struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
	Choices   []string `json:"choices"`
	Answers   []string `json:"answers"`
}

// LikeAction is the outcome of a like toggle
type LikeAction string

const (
	LikeActionLiked   LikeAction = "liked"
	LikeActionUnliked LikeAction = "unliked"
)

// LikeResult is the state of a quiz right after a toggle
type LikeResult struct {
	QuizID     string     `json:"quiz_id"`
	Action     LikeAction `json:"action"`
	Likes      int        `json:"likes"`
	LikesUsers []string   `json:"likes_users"`
}

// Delta returns +1 for a like and -1 for an unlike
func (r *LikeResult) Delta() int {
	if r.Action == LikeActionLiked {
		return 1
	}
	return -1
}

// LikesView is the response of GET /likes/{id}
type LikesView struct {
	QuizID     string   `json:"quiz_id"`
	Likes      int      `json:"likes"`
	LikesUsers []string `json:"likes_users"`
}
