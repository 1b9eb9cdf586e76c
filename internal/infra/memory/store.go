// Package memory implements the quiz store on mutex-guarded maps. It backs
// unit tests and demo runs where no storage path is configured; nothing
// survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"quizbox/internal/app"
	"quizbox/internal/domain"
)

// Store is an in-memory implementation of app.Store.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	emailIndex  map[string]string
	quizzes     map[string]domain.Quiz
	submissions map[string]domain.Submission
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		emailIndex:  make(map[string]string),
		quizzes:     make(map[string]domain.Quiz),
		submissions: make(map[string]domain.Submission),
	}
}

func (s *Store) Users() app.UserRepository             { return (*userRepo)(s) }
func (s *Store) Quizzes() app.QuizRepository           { return (*quizRepo)(s) }
func (s *Store) Submissions() app.SubmissionRepository { return (*submissionRepo)(s) }

// Seed bulk-inserts fixture data under one lock, so a concurrent reader never
// observes a half-seeded store.
func (s *Store) Seed(_ context.Context, quizzes []domain.Quiz, users []domain.User, submissions []domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range quizzes {
		if _, ok := s.quizzes[q.ID]; ok {
			return domain.ErrDuplicateKey
		}
		s.quizzes[q.ID] = q
	}
	for _, u := range users {
		if err := s.addUserLocked(u); err != nil {
			return err
		}
	}
	for _, sub := range submissions {
		if _, ok := s.submissions[sub.ID]; ok {
			return domain.ErrDuplicateKey
		}
		s.submissions[sub.ID] = sub
	}
	return nil
}

func (s *Store) addUserLocked(u domain.User) error {
	if _, ok := s.users[u.ID]; ok {
		return domain.ErrDuplicateKey
	}
	if _, ok := s.emailIndex[u.Email]; ok && u.Email != "" {
		return domain.ErrDuplicateKey
	}
	s.users[u.ID] = u
	if u.Email != "" {
		s.emailIndex[u.Email] = u.ID
	}
	return nil
}

type userRepo Store

func (r *userRepo) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emailIndex[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return r.users[id], nil
}

func (r *userRepo) Add(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*Store)(r).addUserLocked(u)
}

func (r *userRepo) Put(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.users[u.ID]; ok && old.Email != u.Email {
		delete(r.emailIndex, old.Email)
	}
	r.users[u.ID] = u
	if u.Email != "" {
		r.emailIndex[u.Email] = u.ID
	}
	return nil
}

func (r *userRepo) AddToStats(_ context.Context, id string, scoreDelta, completedDelta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Stats.TotalScore += scoreDelta
	u.Stats.TotalQuizzesCompleted += completedDelta
	r.users[id] = u
	return nil
}

type quizRepo Store

func (r *quizRepo) Get(_ context.Context, id string) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrNotFound
	}
	return q, nil
}

func (r *quizRepo) GetAll(_ context.Context) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(r.quizzes))
	for _, q := range r.quizzes {
		quizzes = append(quizzes, q)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (r *quizRepo) Add(_ context.Context, q domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[q.ID]; ok {
		return domain.ErrDuplicateKey
	}
	r.quizzes[q.ID] = q
	return nil
}

func (r *quizRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.quizzes), nil
}

type submissionRepo Store

func (r *submissionRepo) Get(_ context.Context, id string) (domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}
	return sub, nil
}

func (r *submissionRepo) Add(_ context.Context, sub domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[sub.ID]; ok {
		return domain.ErrDuplicateKey
	}
	r.submissions[sub.ID] = sub
	return nil
}

func (r *submissionRepo) ListByUser(_ context.Context, userID string) ([]domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := make([]domain.Submission, 0)
	for _, sub := range r.submissions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}
