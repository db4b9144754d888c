package service

// Publisher pushes a named event to every connected viewer.
// Implementations must not block on slow viewers.
type Publisher interface {
	Publish(event string, data interface{})
}

// Services aggregates the long-lived domain services
type Services struct {
	Activity *ActivityService
	Poll     *PollService
	Quiz     *QuizService
	Cache    *CacheService
}
