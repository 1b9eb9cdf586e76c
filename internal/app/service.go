package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizbox/internal/domain"
)

const defaultTokenTTL = 24 * time.Hour

// Service contains the core quiz use cases. Every operation runs against the
// backing store; the store is the sole source of truth while the service is
// active. Operations may be invoked concurrently by independent callers.
type Service struct {
	users       UserRepository
	quizzes     QuizRepository
	submissions SubmissionRepository
	signKey     []byte
	tokenTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithTokenTTL overrides the session token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(users UserRepository, quizzes QuizRepository, submissions SubmissionRepository, signKey []byte, opts ...Option) *Service {
	s := &Service{
		users:       users,
		quizzes:     quizzes,
		submissions: submissions,
		signKey:     signKey,
		tokenTTL:    defaultTokenTTL,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProfileUpdate carries a partial profile change; nil fields are left untouched.
type ProfileUpdate struct {
	Username *string
	Avatar   *string
}

// RegisterUser creates a new account. The password is stored as supplied;
// hashing is handled by the outer backend and deferred in this layer.
func (s *Service) RegisterUser(ctx context.Context, email, password, username string) (domain.User, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.User{}, domain.ErrEmailExists
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}

	u := domain.User{
		ID:       NewID("user"),
		Email:    email,
		Password: password,
		Username: username,
	}
	if err := s.users.Add(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return domain.User{}, domain.ErrEmailExists
		}
		return domain.User{}, fmt.Errorf("add user: %w", err)
	}
	return u.Public(), nil
}

// Login authenticates by plaintext compare and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if u.Password != password {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return u.Public(), token, nil
}

// GetQuizzes lists quizzes without leaking questions or answers.
func (s *Service) GetQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	summaries := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		summaries = append(summaries, q.Summary())
	}
	return summaries, nil
}

// GetQuizByID returns the full quiz including questions and correct answers.
func (s *Service) GetQuizByID(ctx context.Context, id string) (domain.Quiz, error) {
	return s.quizzes.Get(ctx, id)
}

// SubmitQuiz scores the answers, persists an immutable submission, and
// updates the user's accumulated stats. A nil entry in answers means the
// question was skipped; it never counts as correct and is stored as -1.
func (s *Service) SubmitQuiz(ctx context.Context, quizID, userID string, answers []*int) (domain.SubmitResult, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	score := 0
	normalized := make([]domain.Answer, len(quiz.Questions))
	for i, q := range quiz.Questions {
		selected := domain.NoAnswer
		if i < len(answers) && answers[i] != nil {
			selected = *answers[i]
		}
		if selected != domain.NoAnswer && selected == q.CorrectAnswer {
			score++
		}
		normalized[i] = domain.Answer{QuestionIndex: i, SelectedOption: selected}
	}

	sub := domain.Submission{
		ID:          NewID("sub"),
		UserID:      userID,
		QuizID:      quizID,
		Answers:     normalized,
		Score:       score,
		SubmittedAt: s.now(),
	}
	if err := s.submissions.Add(ctx, sub); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("add submission: %w", err)
	}

	if _, err := s.ensureUser(ctx, userID); err != nil {
		return domain.SubmitResult{}, err
	}
	if err := s.users.AddToStats(ctx, userID, score, 1); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("update stats: %w", err)
	}

	return domain.SubmitResult{Score: score, Total: len(quiz.Questions), SubmissionID: sub.ID}, nil
}

// GetSubmissionDetails reconstructs a past submission for review.
func (s *Service) GetSubmissionDetails(ctx context.Context, submissionID string) (domain.SubmissionDetail, error) {
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return domain.SubmissionDetail{}, err
	}
	quiz, err := s.quizzes.Get(ctx, sub.QuizID)
	if err != nil {
		return domain.SubmissionDetail{}, err
	}
	if _, err := s.ensureUser(ctx, sub.UserID); err != nil {
		return domain.SubmissionDetail{}, err
	}

	results := make([]domain.AnswerDetail, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		selected := domain.NoAnswer
		if i < len(sub.Answers) {
			selected = sub.Answers[i].SelectedOption
		}
		detail := domain.AnswerDetail{
			Question:       q.Text,
			SelectedAnswer: domain.NoAnswerText,
			CorrectAnswer:  optionText(q, q.CorrectAnswer),
			IsCorrect:      selected != domain.NoAnswer && selected == q.CorrectAnswer,
		}
		if selected != domain.NoAnswer {
			detail.SelectedAnswer = optionText(q, selected)
		}
		results = append(results, detail)
	}

	return domain.SubmissionDetail{
		Score:   sub.Score,
		Total:   len(quiz.Questions),
		Results: results,
	}, nil
}

// GetUserSubmissions lists a user's submission history, newest data as stored.
// A quiz deleted since submission falls back to a placeholder title.
func (s *Service) GetUserSubmissions(ctx context.Context, userID string) ([]domain.SubmissionSummary, error) {
	subs, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	summaries := make([]domain.SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		title := "Unknown quiz"
		total := len(sub.Answers)
		if quiz, err := s.quizzes.Get(ctx, sub.QuizID); err == nil {
			title = quiz.Title
			total = len(quiz.Questions)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolve quiz %s: %w", sub.QuizID, err)
		}
		summaries = append(summaries, domain.SubmissionSummary{
			SubmissionID: sub.ID,
			QuizTitle:    title,
			Score:        sub.Score,
			Total:        total,
			SubmittedAt:  sub.SubmittedAt,
		})
	}
	return summaries, nil
}

// GetUserStats returns the user's accumulated stats.
func (s *Service) GetUserStats(ctx context.Context, userID string) (domain.Stats, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.Stats{}, err
	}
	return u.Stats, nil
}

// GetUserProfile returns the user record minus the password.
func (s *Service) GetUserProfile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return u.Public(), nil
}

// UpdateUserProfile applies a partial update; absent fields stay untouched.
func (s *Service) UpdateUserProfile(ctx context.Context, userID string, update ProfileUpdate) (domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if err := s.users.Put(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("put user: %w", err)
	}
	return u.Public(), nil
}

// ensureUser loads the user, synthesizing a tagged placeholder record when the
// ID follows the temporary-user convention. Submissions from ad-hoc quiz
// takers must not fail on the missing account.
func (s *Service) ensureUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !domain.IsTemporaryUserID(userID) {
		return domain.User{}, err
	}

	u = domain.User{
		ID:          userID,
		Username:    userID,
		Placeholder: true,
	}
	if err := s.users.Add(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			// Lost the race against a concurrent synthesis; reload.
			return s.users.Get(ctx, userID)
		}
		return domain.User{}, fmt.Errorf("add placeholder user: %w", err)
	}
	s.logger.Info("synthesized placeholder user", zap.String("userId", userID))
	return u, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
}

func optionText(q domain.Question, idx int) string {
	if idx < 0 || idx >= len(q.Options) {
		return domain.NoAnswerText
	}
	return q.Options[idx]
}

// NewID generates a prefixed, roughly sortable primary key.
func NewID(prefix string) string {
	return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + uuid.NewString()[:8]
}
