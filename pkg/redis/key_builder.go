package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "test":
		prefix = "test"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:quizhub:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyDailyPoll(date string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDailyPoll, date))
}

func (kb *KeyBuilder) KeyPollVoted(pollID, username string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPollVoted, pollID, username))
}

func (kb *KeyBuilder) KeyActiveTimes() string {
	return kb.BuildKey(KeyActiveTimes)
}

func (kb *KeyBuilder) KeyQuizLikes(quizID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyQuizLikes, quizID))
}
