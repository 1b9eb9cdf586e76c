// Package redis caches quiz content in Redis for server deployments where
// multiple instances share one backing store.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizbox/internal/app"
	"quizbox/internal/domain"
)

// QuizCache decorates a quiz repository with a Redis read-through cache.
// Quizzes are stored as: SET quiz:{quizID} {json} with TTL; the listing is
// cached under quiz:__all__.
type QuizCache struct {
	client *redis.Client
	inner  app.QuizRepository
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizCache(client *redis.Client, inner app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := c.quizKey(quizID)

	if quiz, ok := c.fromCache(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.fromCache(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := c.inner.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if raw, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) GetAll(ctx context.Context) ([]domain.Quiz, error) {
	key := c.quizKey("__all__")

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quizzes []domain.Quiz
		if err := json.Unmarshal(raw, &quizzes); err == nil {
			return quizzes, nil
		}
	}

	result, err, _ := c.sf.Do("__all__", func() (interface{}, error) {
		quizzes, err := c.inner.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(quizzes); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// Add writes through and invalidates the cached listing.
func (c *QuizCache) Add(ctx context.Context, q domain.Quiz) error {
	if err := c.inner.Add(ctx, q); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.quizKey("__all__")).Err()
	return nil
}

func (c *QuizCache) Count(ctx context.Context) (int, error) {
	return c.inner.Count(ctx)
}

func (c *QuizCache) fromCache(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCache) quizKey(quizID string) string {
	return "quiz:" + quizID
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
