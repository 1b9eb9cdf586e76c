package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"quizbox/internal/app"
	"quizbox/internal/domain"
	"quizbox/internal/infra/memory"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	inner := newCountingRepo(t)
	cache := NewQuizCache(client, inner, time.Minute)

	quiz, err := cache.Get(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quiz.Title != "Sample" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if inner.gets() != 1 {
		t.Fatalf("expected one store hit, got %d", inner.gets())
	}

	// Second call should hit redis, store not touched.
	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if inner.gets() != 1 {
		t.Fatalf("expected cache hit, store hits=%d", inner.gets())
	}
}

func TestQuizCacheReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	inner := newCountingRepo(t)
	cache := NewQuizCache(client, inner, time.Minute)

	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	// Past TTL plus the jitter ceiling.
	mr.FastForward(2 * time.Minute)
	if _, err := cache.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if inner.gets() != 2 {
		t.Fatalf("expected reload after expiry, store hits=%d", inner.gets())
	}
}

func TestQuizCacheListingInvalidatedOnAdd(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	inner := newCountingRepo(t)
	cache := NewQuizCache(client, inner, time.Minute)

	all, err := cache.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(all))
	}
	if _, err := cache.GetAll(ctx); err != nil {
		t.Fatalf("get all: %v", err)
	}
	if inner.getAlls() != 1 {
		t.Fatalf("expected cached listing, store hits=%d", inner.getAlls())
	}

	if err := cache.Add(ctx, domain.Quiz{ID: "quiz-2", Title: "Second"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	all, err = cache.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected fresh listing with 2 quizzes, got %d", len(all))
	}
}

func TestQuizCachePropagatesNotFound(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	cache := NewQuizCache(client, newCountingRepo(t), time.Minute)

	if _, err := cache.Get(ctx, "quiz-unknown"); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingRepo struct {
	inner app.QuizRepository

	mu         sync.Mutex
	getCalls   int
	getAllCall int
}

func newCountingRepo(t *testing.T) *countingRepo {
	t.Helper()
	store := memory.NewStore()
	if err := store.Quizzes().Add(context.Background(), domain.Quiz{ID: "quiz-1", Title: "Sample"}); err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	return &countingRepo{inner: store.Quizzes()}
}

func (r *countingRepo) Get(ctx context.Context, id string) (domain.Quiz, error) {
	r.mu.Lock()
	r.getCalls++
	r.mu.Unlock()
	return r.inner.Get(ctx, id)
}

func (r *countingRepo) GetAll(ctx context.Context) ([]domain.Quiz, error) {
	r.mu.Lock()
	r.getAllCall++
	r.mu.Unlock()
	return r.inner.GetAll(ctx)
}

func (r *countingRepo) Add(ctx context.Context, q domain.Quiz) error {
	return r.inner.Add(ctx, q)
}

func (r *countingRepo) Count(ctx context.Context) (int, error) {
	return r.inner.Count(ctx)
}

func (r *countingRepo) gets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

func (r *countingRepo) getAlls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getAllCall
}

func newClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), mr
}
