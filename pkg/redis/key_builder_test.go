package redis

import (
	"testing"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Test environment keeps its own prefix",
			environment:    "test",
			expectedPrefix: "test",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			if kb.GetPrefix() != tt.expectedPrefix {
				t.Errorf("NewKeyBuilder(%s).GetPrefix() = %s, want %s",
					tt.environment, kb.GetPrefix(), tt.expectedPrefix)
			}
		})
	}
}

func TestKeyBuilder_KeyGeneration(t *testing.T) {
	kb := NewKeyBuilder("production")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "DailyPoll key",
			got:      kb.KeyDailyPoll("2024-01-15"),
			expected: "prod:quizhub:poll:daily:2024-01-15",
		},
		{
			name:     "PollVoted key",
			got:      kb.KeyPollVoted("p1", "alice"),
			expected: "prod:quizhub:poll:p1:voted:alice",
		},
		{
			name:     "ActiveTimes key",
			got:      kb.KeyActiveTimes(),
			expected: "prod:quizhub:activity:times",
		},
		{
			name:     "QuizLikes key",
			got:      kb.KeyQuizLikes("q1"),
			expected: "prod:quizhub:quiz:q1:likes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %s, want %s", tt.got, tt.expected)
			}
		})
	}
}

func TestKeyBuilder_EnvironmentIsolation(t *testing.T) {
	prod := NewKeyBuilder("production")
	staging := NewKeyBuilder("staging")

	if prod.KeyActiveTimes() == staging.KeyActiveTimes() {
		t.Errorf("keys collide across environments: %s", prod.KeyActiveTimes())
	}
}
