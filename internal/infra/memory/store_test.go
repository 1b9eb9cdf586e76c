package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizbox/internal/domain"
)

func TestUserAddAndDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.Users().Add(ctx, domain.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := store.Users().Add(ctx, domain.User{ID: "u2", Email: "a@example.com"})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	// Empty emails never collide; placeholder accounts carry none.
	if err := store.Users().Add(ctx, domain.User{ID: "temp_1"}); err != nil {
		t.Fatalf("add placeholder: %v", err)
	}
	if err := store.Users().Add(ctx, domain.User{ID: "temp_2"}); err != nil {
		t.Fatalf("add second placeholder: %v", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.Users().GetByEmail(ctx, "a@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_ = store.Users().Add(ctx, domain.User{ID: "u1", Email: "a@example.com", Username: "alice"})
	u, err := store.Users().GetByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u.ID != "u1" || u.Username != "alice" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserPutReindexesEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Users().Add(ctx, domain.User{ID: "u1", Email: "old@example.com"})
	if err := store.Users().Put(ctx, domain.User{ID: "u1", Email: "new@example.com"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := store.Users().GetByEmail(ctx, "old@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old email unindexed, got %v", err)
	}
	if _, err := store.Users().GetByEmail(ctx, "new@example.com"); err != nil {
		t.Fatalf("expected new email indexed, got %v", err)
	}
}

func TestAddToStats(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Users().Add(ctx, domain.User{ID: "u1"})
	if err := store.Users().AddToStats(ctx, "u1", 3, 1); err != nil {
		t.Fatalf("add to stats: %v", err)
	}
	if err := store.Users().AddToStats(ctx, "u1", 2, 1); err != nil {
		t.Fatalf("add to stats: %v", err)
	}

	u, _ := store.Users().Get(ctx, "u1")
	if u.Stats.TotalScore != 5 || u.Stats.TotalQuizzesCompleted != 2 {
		t.Fatalf("expected stats 5/2, got %+v", u.Stats)
	}

	if err := store.Users().AddToStats(ctx, "ghost", 1, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddToStatsConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Users().Add(ctx, domain.User{ID: "u1"})

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := store.Users().AddToStats(ctx, "u1", 2, 1); err != nil {
				t.Errorf("add to stats: %v", err)
			}
		}()
	}
	wg.Wait()

	u, _ := store.Users().Get(ctx, "u1")
	if u.Stats.TotalScore != 2*workers || u.Stats.TotalQuizzesCompleted != workers {
		t.Fatalf("lost increments: got %+v, want %d/%d", u.Stats, 2*workers, workers)
	}
}

func TestQuizListingSortedByID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Quizzes().Add(ctx, domain.Quiz{ID: "quiz-b"})
	_ = store.Quizzes().Add(ctx, domain.Quiz{ID: "quiz-a"})

	quizzes, err := store.Quizzes().GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != "quiz-a" {
		t.Fatalf("expected sorted listing, got %+v", quizzes)
	}

	count, _ := store.Quizzes().Count(ctx)
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestSubmissionsListByUserSorted(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_ = store.Submissions().Add(ctx, domain.Submission{ID: "s2", UserID: "u1", SubmittedAt: base.Add(time.Hour)})
	_ = store.Submissions().Add(ctx, domain.Submission{ID: "s1", UserID: "u1", SubmittedAt: base})
	_ = store.Submissions().Add(ctx, domain.Submission{ID: "s3", UserID: "u2", SubmittedAt: base})

	subs, err := store.Submissions().ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != "s1" || subs[1].ID != "s2" {
		t.Fatalf("expected chronological [s1 s2], got %+v", subs)
	}
}

func TestSeedRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Quizzes().Add(ctx, domain.Quiz{ID: "quiz-1"})
	err := store.Seed(ctx, []domain.Quiz{{ID: "quiz-1"}}, nil, nil)
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}
