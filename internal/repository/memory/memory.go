// Package memory provides in-memory repositories with the same contracts as
// the PostgreSQL ones. Used by service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizhub/internal/domain"
	"quizhub/internal/repository"

	"github.com/google/uuid"
)

// Store holds all tables behind one mutex
type Store struct {
	mu       sync.Mutex
	users    map[string]*domain.User // by username
	quizzes  map[string]*domain.Quiz
	likes    map[[2]string]bool // (quiz, user)
	comments map[string][]domain.Comment
	polls    map[string]*domain.DailyPoll // by id
	votes    map[[2]string]*domain.Vote   // (poll, user)

	// PollCreates counts successful poll inserts
	PollCreates int
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		quizzes:  make(map[string]*domain.Quiz),
		likes:    make(map[[2]string]bool),
		comments: make(map[string][]domain.Comment),
		polls:    make(map[string]*domain.DailyPoll),
		votes:    make(map[[2]string]*domain.Vote),
	}
}

// Repositories returns repository views over the store
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User: &userRepo{s},
		Quiz: &quizRepo{s},
		Poll: &pollRepo{s},
	}
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	cp := *user
	r.s.users[user.Username] = &cp
	return nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (r *userRepo) GetBySessionToken(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.find(func(u *domain.User) bool { return u.SessionToken == token }), nil
}

func (r *userRepo) SetSessionToken(_ context.Context, username, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.SessionToken = token
	return nil
}

func (r *userRepo) find(match func(u *domain.User) bool) *domain.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

type quizRepo struct{ s *Store }

func (r *quizRepo) Create(_ context.Context, quiz *domain.Quiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	if quiz.LikedBy == nil {
		quiz.LikedBy = []string{}
	}
	r.s.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (r *quizRepo) GetByID(_ context.Context, id string) (*domain.Quiz, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q, ok := r.s.quizzes[id]
	if !ok {
		return nil, nil
	}
	cp := copyQuiz(q)
	cp.Comments = append([]domain.Comment(nil), r.s.comments[id]...)
	return cp, nil
}

func (r *quizRepo) List(_ context.Context, limit int) ([]*domain.Quiz, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Quiz, 0, len(r.s.quizzes))
	for id, q := range r.s.quizzes {
		cp := copyQuiz(q)
		cp.Comments = append([]domain.Comment(nil), r.s.comments[id]...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *quizRepo) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]string, 0, len(r.s.quizzes))
	for id := range r.s.quizzes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *quizRepo) ToggleLike(_ context.Context, quizID, username string) (*domain.LikeResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q, ok := r.s.quizzes[quizID]
	if !ok {
		return nil, nil
	}

	key := [2]string{quizID, username}
	result := &domain.LikeResult{QuizID: quizID}
	if r.s.likes[key] {
		delete(r.s.likes, key)
		q.Likes--
		q.LikedBy = removeString(q.LikedBy, username)
		result.Action = domain.LikeActionUnliked
	} else {
		r.s.likes[key] = true
		q.Likes++
		q.LikedBy = append(q.LikedBy, username)
		result.Action = domain.LikeActionLiked
	}
	result.Likes = q.Likes
	result.LikesUsers = append([]string{}, q.LikedBy...)
	return result, nil
}

func (r *quizRepo) AddComment(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.quizzes[comment.QuizID]; !ok {
		return repository.ErrNotFound
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	r.s.comments[comment.QuizID] = append(r.s.comments[comment.QuizID], *comment)
	return nil
}

func (r *quizRepo) ListComments(_ context.Context, quizID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append([]domain.Comment(nil), r.s.comments[quizID]...), nil
}

type pollRepo struct{ s *Store }

func (r *pollRepo) GetByDate(_ context.Context, date string) (*domain.DailyPoll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.polls {
		if p.PollDate == date {
			return copyPoll(p), nil
		}
	}
	return nil, nil
}

func (r *pollRepo) GetByID(_ context.Context, id string) (*domain.DailyPoll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.polls[id]
	if !ok {
		return nil, nil
	}
	return copyPoll(p), nil
}

func (r *pollRepo) Create(_ context.Context, poll *domain.DailyPoll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.polls {
		if p.PollDate == poll.PollDate {
			return repository.ErrDuplicate
		}
	}
	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now().UTC()
	}
	r.s.polls[poll.ID] = copyPoll(poll)
	r.s.PollCreates++
	return nil
}

func (r *pollRepo) RecordVote(_ context.Context, vote *domain.Vote) (*domain.DailyPoll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.polls[vote.PollID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	key := [2]string{vote.PollID, vote.Username}
	if _, voted := r.s.votes[key]; voted {
		return nil, repository.ErrDuplicate
	}
	if _, ok := p.Results[vote.Answer]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *vote
	r.s.votes[key] = &cp
	p.Results[vote.Answer]++
	return copyPoll(p), nil
}

func (r *pollRepo) HasVoted(_ context.Context, pollID, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.votes[[2]string{pollID, username}]
	return ok, nil
}

func copyQuiz(q *domain.Quiz) *domain.Quiz {
	cp := *q
	cp.Questions = append([]domain.Question(nil), q.Questions...)
	cp.LikedBy = append([]string{}, q.LikedBy...)
	cp.Comments = nil
	return &cp
}

func copyPoll(p *domain.DailyPoll) *domain.DailyPoll {
	cp := *p
	cp.Choices = append([]string(nil), p.Choices...)
	cp.Results = make(map[string]int, len(p.Results))
	for k, v := range p.Results {
		cp.Results[k] = v
	}
	return &cp
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
