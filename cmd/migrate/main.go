package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"quizhub/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [drop|up|seed|reset]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	case "reset":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ Schema reset successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS poll_votes CASCADE`,
		`DROP TABLE IF EXISTS daily_polls CASCADE`,
		`DROP TABLE IF EXISTS quiz_likes CASCADE`,
		`DROP TABLE IF EXISTS quiz_comments CASCADE`,
		`DROP TABLE IF EXISTS quizzes CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			session_token VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_session_token ON users(session_token) WHERE session_token IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS quizzes (
			id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			author VARCHAR(255) NOT NULL,
			questions JSONB NOT NULL,
			likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
			liked_by TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_created_at ON quizzes(created_at DESC)`,

		// One row per (quiz, user); the like toggle's source of truth
		`CREATE TABLE IF NOT EXISTS quiz_likes (
			quiz_id UUID NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
			username VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (quiz_id, username)
		)`,

		`CREATE TABLE IF NOT EXISTS quiz_comments (
			id UUID PRIMARY KEY,
			quiz_id UUID NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
			username VARCHAR(255) NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_comments_quiz ON quiz_comments(quiz_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS daily_polls (
			id UUID PRIMARY KEY,
			poll_date DATE UNIQUE NOT NULL,
			quiz_id UUID NOT NULL,
			question TEXT NOT NULL,
			choices TEXT[] NOT NULL,
			results JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS poll_votes (
			poll_id UUID NOT NULL REFERENCES daily_polls(id) ON DELETE CASCADE,
			username VARCHAR(255) NOT NULL,
			answer TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (poll_id, username)
		)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	quizzes := []struct {
		title     string
		questions []domain.Question
	}{
		{
			title: "World Capitals",
			questions: []domain.Question{
				{Text: "What is the capital of France?", Choices: []string{"Paris", "Lyon", "Marseille"}, Answer: "Paris"},
				{Text: "What is the capital of Japan?", Choices: []string{"Osaka", "Tokyo", "Kyoto"}, Answer: "Tokyo"},
			},
		},
		{
			title: "Science Basics",
			questions: []domain.Question{
				{Text: "What planet is known as the Red Planet?", Choices: []string{"Mars", "Venus", "Jupiter"}, Answer: "Mars"},
				{Text: "What gas do plants absorb?", Choices: []string{"Oxygen", "Carbon dioxide", "Nitrogen"}, Answer: "Carbon dioxide"},
			},
		},
	}

	for _, q := range quizzes {
		questions, err := json.Marshal(q.questions)
		if err != nil {
			return fmt.Errorf("failed to encode questions: %w", err)
		}

		_, err = conn.Exec(ctx, `
			INSERT INTO quizzes (id, title, author, questions, created_at)
			SELECT $1, $2, 'system', $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM quizzes WHERE title = $2)
		`, uuid.NewString(), q.title, questions, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to seed quiz %q: %w", q.title, err)
		}
		fmt.Printf("  Seeded quiz: %s\n", q.title)
	}

	return nil
}
