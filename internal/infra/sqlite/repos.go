package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quizbox/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID           string `bun:"id,pk"`
	Email        string `bun:"email"`
	Password     string `bun:"password"`
	Username     string `bun:"username"`
	Avatar       string `bun:"avatar"`
	TotalScore   int    `bun:"total_score"`
	TotalQuizzes int    `bun:"total_quizzes"`
	Placeholder  bool   `bun:"placeholder"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string `bun:"id,pk"`
	Title     string `bun:"title"`
	Category  string `bun:"category"`
	Questions []byte `bun:"questions"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id"`
	QuizID      string    `bun:"quiz_id"`
	Answers     []byte    `bun:"answers"`
	Score       int       `bun:"score"`
	SubmittedAt time.Time `bun:"submitted_at"`
}

func userToRow(u domain.User) userRow {
	return userRow{
		ID:           u.ID,
		Email:        u.Email,
		Password:     u.Password,
		Username:     u.Username,
		Avatar:       u.Avatar,
		TotalScore:   u.Stats.TotalScore,
		TotalQuizzes: u.Stats.TotalQuizzesCompleted,
		Placeholder:  u.Placeholder,
	}
}

func rowToUser(row userRow) domain.User {
	return domain.User{
		ID:       row.ID,
		Email:    row.Email,
		Password: row.Password,
		Username: row.Username,
		Avatar:   row.Avatar,
		Stats: domain.Stats{
			TotalScore:            row.TotalScore,
			TotalQuizzesCompleted: row.TotalQuizzes,
		},
		Placeholder: row.Placeholder,
	}
}

func quizToRow(q domain.Quiz) (quizRow, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return quizRow{}, fmt.Errorf("marshal questions: %w", err)
	}
	return quizRow{ID: q.ID, Title: q.Title, Category: q.Category, Questions: questions}, nil
}

func rowToQuiz(row quizRow) (domain.Quiz, error) {
	q := domain.Quiz{ID: row.ID, Title: row.Title, Category: row.Category}
	if err := json.Unmarshal(row.Questions, &q.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return q, nil
}

func submissionToRow(s domain.Submission) (submissionRow, error) {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return submissionRow{}, fmt.Errorf("marshal answers: %w", err)
	}
	return submissionRow{
		ID:          s.ID,
		UserID:      s.UserID,
		QuizID:      s.QuizID,
		Answers:     answers,
		Score:       s.Score,
		SubmittedAt: s.SubmittedAt,
	}, nil
}

func rowToSubmission(row submissionRow) (domain.Submission, error) {
	s := domain.Submission{
		ID:          row.ID,
		UserID:      row.UserID,
		QuizID:      row.QuizID,
		Score:       row.Score,
		SubmittedAt: row.SubmittedAt,
	}
	if err := json.Unmarshal(row.Answers, &s.Answers); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return s, nil
}

type userRepo struct {
	db *bun.DB
}

func (r *userRepo) Get(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return rowToUser(row), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where("email = ?", email).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return rowToUser(row), nil
}

func (r *userRepo) Add(ctx context.Context, u domain.User) error {
	row := userToRow(u)
	res, err := r.db.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return requireInsert(res)
}

func (r *userRepo) Put(ctx context.Context, u domain.User) error {
	row := userToRow(u)
	_, err := r.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("password = EXCLUDED.password").
		Set("username = EXCLUDED.username").
		Set("avatar = EXCLUDED.avatar").
		Set("total_score = EXCLUDED.total_score").
		Set("total_quizzes = EXCLUDED.total_quizzes").
		Set("placeholder = EXCLUDED.placeholder").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (r *userRepo) AddToStats(ctx context.Context, id string, scoreDelta, completedDelta int) error {
	res, err := r.db.NewUpdate().Model((*userRow)(nil)).
		Set("total_score = total_score + ?", scoreDelta).
		Set("total_quizzes = total_quizzes + ?", completedDelta).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type quizRepo struct {
	db *bun.DB
}

func (r *quizRepo) Get(ctx context.Context, id string) (domain.Quiz, error) {
	var row quizRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quiz{}, domain.ErrNotFound
		}
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return rowToQuiz(row)
}

func (r *quizRepo) GetAll(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		q, err := rowToQuiz(row)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}

func (r *quizRepo) Add(ctx context.Context, q domain.Quiz) error {
	row, err := quizToRow(q)
	if err != nil {
		return err
	}
	res, err := r.db.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("add quiz: %w", err)
	}
	return requireInsert(res)
}

func (r *quizRepo) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().Model((*quizRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count quizzes: %w", err)
	}
	return count, nil
}

type submissionRepo struct {
	db *bun.DB
}

func (r *submissionRepo) Get(ctx context.Context, id string) (domain.Submission, error) {
	var row submissionRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return rowToSubmission(row)
}

func (r *submissionRepo) Add(ctx context.Context, sub domain.Submission) error {
	row, err := submissionToRow(sub)
	if err != nil {
		return err
	}
	res, err := r.db.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("add submission: %w", err)
	}
	return requireInsert(res)
}

func (r *submissionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	var rows []submissionRow
	err := r.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Order("submitted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	subs := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := rowToSubmission(row)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// requireInsert maps a DO NOTHING no-op to the duplicate key error.
func requireInsert(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}
