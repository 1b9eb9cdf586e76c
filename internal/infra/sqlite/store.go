// Package sqlite implements the local document store on an embedded SQLite
// database via bun. This is the persistent backend of the offline data layer:
// three tables (users, quizzes, submissions), a unique email index, and
// user_id/quiz_id indexes on submissions. The schema is versioned through
// PRAGMA user_version; Open declares missing tables and indexes when it finds
// an older version.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"quizbox/internal/app"
	"quizbox/internal/domain"
)

const schemaVersion = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		total_score INTEGER NOT NULL DEFAULT 0,
		total_quizzes INTEGER NOT NULL DEFAULT 0,
		placeholder INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email <> ''`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		questions TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		quiz_id TEXT NOT NULL,
		answers TEXT NOT NULL,
		score INTEGER NOT NULL,
		submitted_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_quiz ON submissions(quiz_id)`,
}

// Store is the embedded implementation of app.Store.
type Store struct {
	db *bun.DB
}

// Open opens (creating if absent) the database at path and brings the schema
// up to the current version. domain.ErrStorageUnavailable wraps any failure
// to reach persistent storage.
func Open(ctx context.Context, path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path+"?cache=shared&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("bump schema version: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Users() app.UserRepository             { return &userRepo{db: s.db} }
func (s *Store) Quizzes() app.QuizRepository           { return &quizRepo{db: s.db} }
func (s *Store) Submissions() app.SubmissionRepository { return &submissionRepo{db: s.db} }

// Seed inserts all fixture records in one transaction; a crash mid-seed
// rolls back and the quiz-count guard retries on the next open.
func (s *Store) Seed(ctx context.Context, quizzes []domain.Quiz, users []domain.User, submissions []domain.Submission) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, q := range quizzes {
			row, err := quizToRow(q)
			if err != nil {
				return err
			}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("seed quiz %s: %w", q.ID, err)
			}
		}
		for _, u := range users {
			row := userToRow(u)
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		for _, sub := range submissions {
			row, err := submissionToRow(sub)
			if err != nil {
				return err
			}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("seed submission %s: %w", sub.ID, err)
			}
		}
		return nil
	})
}
