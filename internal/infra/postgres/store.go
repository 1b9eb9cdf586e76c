// Package postgres implements app.Store on a pgx pool. It backs the server
// variant that presents the same quiz contract the offline layer substitutes
// for. Schema management lives in the migrations subpackage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox/internal/app"
	"quizbox/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Users() app.UserRepository             { return &userRepo{pool: s.pool} }
func (s *Store) Quizzes() app.QuizRepository           { return &quizRepo{pool: s.pool} }
func (s *Store) Submissions() app.SubmissionRepository { return &submissionRepo{pool: s.pool} }

// Seed bulk-inserts fixture data in one transaction.
func (s *Store) Seed(ctx context.Context, quizzes []domain.Quiz, users []domain.User, submissions []domain.Submission) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range quizzes {
		questions, err := json.Marshal(q.Questions)
		if err != nil {
			return fmt.Errorf("marshal questions: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO quizzes (id, title, category, questions) VALUES ($1,$2,$3,$4)`,
			q.ID, q.Title, q.Category, questions); err != nil {
			return fmt.Errorf("seed quiz %s: %w", q.ID, err)
		}
	}
	for _, u := range users {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, password, username, avatar, total_score, total_quizzes, placeholder)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.Email, u.Password, u.Username, u.Avatar,
			u.Stats.TotalScore, u.Stats.TotalQuizzesCompleted, u.Placeholder); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, sub := range submissions {
		answers, err := json.Marshal(sub.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO submissions (id, user_id, quiz_id, answers, score, submitted_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			sub.ID, sub.UserID, sub.QuizID, answers, sub.Score, sub.SubmittedAt); err != nil {
			return fmt.Errorf("seed submission %s: %w", sub.ID, err)
		}
	}
	return tx.Commit(ctx)
}

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, password, username, avatar, total_score, total_quizzes, placeholder`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Username, &u.Avatar,
		&u.Stats.TotalScore, &u.Stats.TotalQuizzesCompleted, &u.Placeholder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *userRepo) Get(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *userRepo) Add(ctx context.Context, u domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, username, avatar, total_score, total_quizzes, placeholder)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT DO NOTHING`,
		u.ID, u.Email, u.Password, u.Username, u.Avatar,
		u.Stats.TotalScore, u.Stats.TotalQuizzesCompleted, u.Placeholder)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *userRepo) Put(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, username, avatar, total_score, total_quizzes, placeholder)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   email=EXCLUDED.email, password=EXCLUDED.password, username=EXCLUDED.username,
		   avatar=EXCLUDED.avatar, total_score=EXCLUDED.total_score,
		   total_quizzes=EXCLUDED.total_quizzes, placeholder=EXCLUDED.placeholder`,
		u.ID, u.Email, u.Password, u.Username, u.Avatar,
		u.Stats.TotalScore, u.Stats.TotalQuizzesCompleted, u.Placeholder)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (r *userRepo) AddToStats(ctx context.Context, id string, scoreDelta, completedDelta int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET total_score = total_score + $2, total_quizzes = total_quizzes + $3 WHERE id=$1`,
		id, scoreDelta, completedDelta)
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type quizRepo struct {
	pool *pgxpool.Pool
}

func (r *quizRepo) Get(ctx context.Context, id string) (domain.Quiz, error) {
	var q domain.Quiz
	var questions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, category, questions FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.Title, &q.Category, &questions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrNotFound
		}
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return q, nil
}

func (r *quizRepo) GetAll(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, category, questions FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var q domain.Quiz
		var questions []byte
		if err := rows.Scan(&q.ID, &q.Title, &q.Category, &questions); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (r *quizRepo) Add(ctx context.Context, q domain.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO quizzes (id, title, category, questions) VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
		q.ID, q.Title, q.Category, questions)
	if err != nil {
		return fmt.Errorf("add quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *quizRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM quizzes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count quizzes: %w", err)
	}
	return count, nil
}

type submissionRepo struct {
	pool *pgxpool.Pool
}

func (r *submissionRepo) Get(ctx context.Context, id string) (domain.Submission, error) {
	var sub domain.Submission
	var answers []byte
	var submittedAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, quiz_id, answers, score, submitted_at FROM submissions WHERE id=$1`, id).
		Scan(&sub.ID, &sub.UserID, &sub.QuizID, &answers, &sub.Score, &submittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	sub.SubmittedAt = submittedAt
	if err := json.Unmarshal(answers, &sub.Answers); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return sub, nil
}

func (r *submissionRepo) Add(ctx context.Context, sub domain.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (id, user_id, quiz_id, answers, score, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT DO NOTHING`,
		sub.ID, sub.UserID, sub.QuizID, answers, sub.Score, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("add submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (r *submissionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, quiz_id, answers, score, submitted_at
		 FROM submissions WHERE user_id=$1 ORDER BY submitted_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0)
	for rows.Next() {
		var sub domain.Submission
		var answers []byte
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.QuizID, &answers, &sub.Score, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(answers, &sub.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
