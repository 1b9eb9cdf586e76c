package app

import (
	"context"

	"quizbox/internal/domain"
)

// UserRepository abstracts how user records are stored (memory, sqlite, postgres).
type UserRepository interface {
	Get(ctx context.Context, id string) (domain.User, error)
	// GetByEmail resolves the unique email index.
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	// Add inserts a new user; domain.ErrDuplicateKey on id or email collision.
	Add(ctx context.Context, u domain.User) error
	// Put inserts or replaces by primary key.
	Put(ctx context.Context, u domain.User) error
	// AddToStats atomically increments the user's accumulated stats.
	// Two concurrent submissions must both land.
	AddToStats(ctx context.Context, id string, scoreDelta, completedDelta int) error
}

// QuizRepository loads quiz content.
type QuizRepository interface {
	Get(ctx context.Context, id string) (domain.Quiz, error)
	GetAll(ctx context.Context) ([]domain.Quiz, error)
	Add(ctx context.Context, q domain.Quiz) error
	Count(ctx context.Context) (int, error)
}

// SubmissionRepository stores scored quiz attempts.
type SubmissionRepository interface {
	Get(ctx context.Context, id string) (domain.Submission, error)
	Add(ctx context.Context, s domain.Submission) error
	// ListByUser resolves the user_id index.
	ListByUser(ctx context.Context, userID string) ([]domain.Submission, error)
}

// Seeder bulk-loads fixture data. Implementations apply the whole batch in a
// single transaction where the backend supports one, so a crash cannot leave
// the store half-seeded.
type Seeder interface {
	Seed(ctx context.Context, quizzes []domain.Quiz, users []domain.User, submissions []domain.Submission) error
}

// Store groups the repositories of one backing database.
type Store interface {
	Seeder
	Users() UserRepository
	Quizzes() QuizRepository
	Submissions() SubmissionRepository
}
