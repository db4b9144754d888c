package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"quizhub/internal/config"
	"quizhub/internal/container"
	"quizhub/internal/domain"
	"quizhub/internal/middleware"
	"quizhub/internal/repository/memory"
	"quizhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t         *testing.T
	container *container.Container
	router    http.Handler
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Environment:     "test",
		AllowedOrigins:  []string{"http://localhost:8080"},
		PollTimezone:    "America/New_York",
		StoreTimeout:    time.Second,
		RateLimitWindow: 10 * time.Second,
		RateLimitMax:    1000,
		RateLimitBlock:  30 * time.Second,
		HubQueueSize:    8,
		BcryptCost:      4,
		TokenSecret:     "handler-test-secret",
	}
	if mutate != nil {
		mutate(cfg)
	}

	c, err := container.New(cfg, logger.NewNop(), memory.New().Repositories())
	require.NoError(t, err)
	go c.Hub.Run()
	t.Cleanup(func() { _ = c.Hub.Shutdown(time.Second) })

	return &testServer{t: t, container: c, router: NewRouter(c, nil)}
}

func (s *testServer) do(method, target, contentType, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(target string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(s.t, err)
	return s.do(http.MethodPost, target, "application/json", string(raw), cookies...)
}

func (s *testServer) postForm(target string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(http.MethodPost, target, "application/x-www-form-urlencoded", values.Encode(), cookies...)
}

// login registers username and returns its session cookie
func (s *testServer) login(username string) *http.Cookie {
	s.t.Helper()

	email := username + "@example.com"
	rec := s.postJSON("/register_user", map[string]string{"username": username, "email": email, "password": "pw1"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.postJSON("/login", map[string]string{"email": email, "password": "pw1"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(s.t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Type    string                 `json:"type"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.postForm("/register_user", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"pw1"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var user domain.User
	env := decode(t, rec, &user)
	assert.True(t, env.Success)
	assert.Equal(t, "alice", user.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.postForm("/register_user", url.Values{"username": {"alice"}, "email": {"other@x.com"}, "password": {"pw1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate", decode(t, rec, nil).Error.Type)

	rec = s.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"pw1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	rec = s.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env = decode(t, rec, nil)
	assert.Equal(t, "authentication", env.Error.Type)
	assert.Empty(t, env.Error.Details)

	rec = s.postJSON("/login", map[string]string{"email": "nobody@x.com", "password": "pw1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_JSONReturnsRedirectTarget(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, s.postJSON("/register_user",
		map[string]string{"username": "bob", "email": "b@x.com", "password": "pw1"}).Code)

	rec := s.postJSON("/login", map[string]string{"email": "B@X.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	decode(t, rec, &resp)
	assert.Equal(t, LoginResponse{Username: "bob", Redirect: "/dashboard"}, resp)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.postJSON("/register_user", map[string]string{"username": "", "email": "nope", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "validation", env.Error.Type)
	assert.Contains(t, env.Error.Details, "username")
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")

	rec = s.do(http.MethodPost, "/register_user", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/logout", "/upload_quiz", "/comment_quiz/x", "/interact", "/submit_poll", "/track_user_activity"} {
		t.Run(path, func(t *testing.T) {
			rec := s.postJSON(path, map[string]string{})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	forged := &http.Cookie{Name: middleware.SessionCookieName, Value: "deadbeef"}
	assert.Equal(t, http.StatusUnauthorized, s.postJSON("/interact", map[string]string{}, forged).Code)
}

func TestSessionBoundToAddress(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login("carol")

	req := httptest.NewRequest(http.MethodPost, "/track_user_activity", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login("dave")

	rec := s.postJSON("/logout", map[string]string{}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	assert.Equal(t, http.StatusUnauthorized, s.postJSON("/track_user_activity", map[string]string{}, cookie).Code)
}

func uploadQuiz(t *testing.T, s *testServer, cookie *http.Cookie) domain.Quiz {
	t.Helper()
	rec := s.postForm("/upload_quiz", url.Values{
		"title":     {"Capitals"},
		"questions": {"Capital of France?", "Capital of Japan?"},
		"choices":   {"Paris, Lyon", "Tokyo,Osaka,Kyoto"},
		"answers":   {"Paris", "Tokyo"},
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var quiz domain.Quiz
	decode(t, rec, &quiz)
	return quiz
}

func TestQuizLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login("erin")

	quiz := uploadQuiz(t, s, cookie)
	assert.Equal(t, "erin", quiz.Author)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, []string{"Tokyo", "Osaka", "Kyoto"}, quiz.Questions[1].Choices)

	var like domain.LikeResult
	rec := s.postJSON("/interact", map[string]string{"quiz_id": quiz.ID}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &like)
	assert.Equal(t, domain.LikeActionLiked, like.Action)
	assert.Equal(t, 1, like.Likes)

	var view domain.LikesView
	rec = s.do(http.MethodGet, "/likes/"+quiz.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Equal(t, 1, view.Likes)
	assert.Equal(t, []string{"erin"}, view.LikesUsers)

	rec = s.postForm("/interact", url.Values{"quiz_id": {quiz.ID}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &like)
	assert.Equal(t, domain.LikeActionUnliked, like.Action)
	assert.Equal(t, 0, like.Likes)
	assert.Empty(t, like.LikesUsers)

	rec = s.postForm("/comment_quiz/"+quiz.ID, url.Values{"comment": {"nice one"}}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	var quizzes []domain.Quiz
	rec = s.do(http.MethodGet, "/dashboard", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &quizzes)
	require.Len(t, quizzes, 1)
	require.Len(t, quizzes[0].Comments, 1)
	assert.Equal(t, "nice one", quizzes[0].Comments[0].Text)
	assert.Equal(t, "erin", quizzes[0].Comments[0].Username)
}

func TestQuizErrors(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login("frank")
	missing := "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name   string
		rec    func() *httptest.ResponseRecorder
		status int
	}{
		{"like malformed id", func() *httptest.ResponseRecorder {
			return s.postJSON("/interact", map[string]string{"quiz_id": "not-a-uuid"}, cookie)
		}, http.StatusBadRequest},
		{"like unknown quiz", func() *httptest.ResponseRecorder {
			return s.postJSON("/interact", map[string]string{"quiz_id": missing}, cookie)
		}, http.StatusNotFound},
		{"comment unknown quiz", func() *httptest.ResponseRecorder {
			return s.postJSON("/comment_quiz/"+missing, map[string]string{"comment": "hi"}, cookie)
		}, http.StatusNotFound},
		{"likes unknown quiz", func() *httptest.ResponseRecorder {
			return s.do(http.MethodGet, "/likes/"+missing, "", "")
		}, http.StatusNotFound},
		{"upload answer not a choice", func() *httptest.ResponseRecorder {
			return s.postJSON("/upload_quiz", map[string]interface{}{
				"title": "T", "questions": []string{"Q"}, "choices": []string{"a,b"}, "answers": []string{"c"},
			}, cookie)
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.rec().Code)
		})
	}
}

func TestDailyPollAndVote(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login("grace")

	var view domain.PollView
	rec := s.do(http.MethodGet, "/daily_poll", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	require.NotNil(t, view.Poll)
	assert.Greater(t, view.SecondsRemaining, int64(0))
	assert.LessOrEqual(t, view.SecondsRemaining, int64(25*60*60))
	require.NotEmpty(t, view.Poll.Choices)

	var again domain.PollView
	decode(t, s.do(http.MethodGet, "/daily_poll", "", ""), &again)
	assert.Equal(t, view.Poll.ID, again.Poll.ID)

	answer := view.Poll.Choices[0]
	rec = s.postForm("/submit_poll", url.Values{"poll_id": {view.Poll.ID}, "answer": {answer}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var poll domain.DailyPoll
	decode(t, rec, &poll)
	assert.Equal(t, 1, poll.Results[answer])

	rec = s.postForm("/submit_poll", url.Values{"poll_id": {view.Poll.ID}, "answer": {answer}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate", decode(t, rec, nil).Error.Type)

	rec = s.postForm("/submit_poll", url.Values{"poll_id": {view.Poll.ID}, "answer": {"not a choice"}}, s.login("heidi"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivityEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login("ivan")

	rec := s.postJSON("/track_user_activity", map[string]interface{}{"id": "tab-1"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.postForm("/track_user_activity", url.Values{}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.postJSON("/track_user_activity", map[string]interface{}{"id": "tab-1", "reset": true}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var req domain.ActivityRequest
	decode(t, rec, &req)
	assert.True(t, req.Reset)

	var times domain.ActiveTimes
	rec = s.do(http.MethodGet, "/active_users", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &times)
	assert.Equal(t, int64(0), times["tab-1"])
	assert.Contains(t, times, "ivan")
}

func TestRateLimitRunsFirst(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.RateLimitMax = 3 })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/active_users", "", "").Code)
	}

	rec := s.do(http.MethodGet, "/active_users", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-ID"))

	// blocked regardless of route
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/nope", "", "").Code)
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "disabled", health.Checks["redis"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = s.do(http.MethodGet, "/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}
