package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizbox/internal/app"
	"quizbox/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizCache decorates a quiz repository with a TTL cache to avoid repeated
// store hits in server mode. Quiz content is read-only after seeding, so
// staleness within the TTL is harmless.
type QuizCache struct {
	inner app.QuizRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu      sync.RWMutex
	cache   map[string]cachedQuiz
	all     []domain.Quiz
	allExp  time.Time
	rndLock sync.Mutex
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCache(inner app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuiz),
	}
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.inner.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) GetAll(ctx context.Context) ([]domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if c.all != nil && c.allExp.After(now) {
		all := c.all
		c.mu.RUnlock()
		return all, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("__all__", func() (interface{}, error) {
		quizzes, err := c.inner.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.all = quizzes
		c.allExp = c.clock().Add(c.ttlWithJitter())
		c.mu.Unlock()
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// Add writes through and drops the listing cache.
func (c *QuizCache) Add(ctx context.Context, q domain.Quiz) error {
	if err := c.inner.Add(ctx, q); err != nil {
		return err
	}
	c.mu.Lock()
	c.all = nil
	c.mu.Unlock()
	return nil
}

func (c *QuizCache) Count(ctx context.Context) (int, error) {
	return c.inner.Count(ctx)
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndLock.Lock()
	defer c.rndLock.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
