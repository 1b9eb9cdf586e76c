package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quizbox/internal/domain"
	"quizbox/internal/prefs"
)

// Bootstrap guarantees the store contains the shipped fixture data and that
// first-launch housekeeping ran exactly once. Two guards, deliberately not
// redundant: the app_initialized preference gates the first-launch sequence
// (legacy scope migration, then seeding), while the quiz-count check gates
// store seeding specifically and is re-run on every EnsureSeeded call.
type Bootstrap struct {
	store       Store
	prefs       prefs.Store
	legacyPath  string
	quizzes     []domain.Quiz
	users       []domain.User
	submissions []domain.Submission
	logger      *zap.Logger

	sf   singleflight.Group
	done chan struct{}
}

func NewBootstrap(store Store, prefStore prefs.Store, legacyPath string, quizzes []domain.Quiz, users []domain.User, submissions []domain.Submission, logger *zap.Logger) *Bootstrap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrap{
		store:       store,
		prefs:       prefStore,
		legacyPath:  legacyPath,
		quizzes:     quizzes,
		users:       users,
		submissions: submissions,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Initialize runs the one-time startup sequence. Concurrent callers share a
// single run; later callers return immediately. Failures are logged and
// initialization still reports complete, so a broken seed never blocks the
// user from reaching the app (fail open).
func (b *Bootstrap) Initialize(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	default:
	}

	_, err, _ := b.sf.Do("init", func() (any, error) {
		select {
		case <-b.done:
			return nil, nil
		default:
		}
		b.initialize(ctx)
		close(b.done)
		return nil, nil
	})
	return err
}

func (b *Bootstrap) initialize(ctx context.Context) {
	// The flag is stored as a boolean so it survives the JSON round-trip of
	// the preference codec; bare "true" strings decode back as bools.
	if !prefs.GetBool(ctx, b.prefs, prefs.KeyAppInitialized) {
		if err := b.migrateLegacy(ctx); err != nil {
			b.logger.Warn("legacy preference migration failed", zap.Error(err))
		}
		if err := b.prefs.SetItem(ctx, prefs.KeyAppInitialized, true); err != nil {
			b.logger.Warn("could not persist app_initialized flag", zap.Error(err))
		}
	}

	if err := b.EnsureSeeded(ctx); err != nil {
		b.logger.Error("store seeding failed, continuing without fixtures", zap.Error(err))
	}
}

// EnsureSeeded seeds the store when, and only when, it holds no quizzes.
// Safe to call on every open; a previously seeded store is left alone.
func (b *Bootstrap) EnsureSeeded(ctx context.Context) error {
	count, err := b.store.Quizzes().Count(ctx)
	if err != nil {
		return fmt.Errorf("count quizzes: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := b.store.Seed(ctx, b.quizzes, b.users, b.submissions); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	b.logger.Info("seeded fixture data",
		zap.Int("quizzes", len(b.quizzes)),
		zap.Int("users", len(b.users)),
		zap.Int("submissions", len(b.submissions)))
	return nil
}

// migrateLegacy copies a legacy flat key/value file into the preference
// scope. Existing preference keys win over legacy values.
func (b *Bootstrap) migrateLegacy(ctx context.Context) error {
	if b.legacyPath == "" {
		return nil
	}
	raw, err := os.ReadFile(b.legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read legacy scope: %w", err)
	}

	legacy := map[string]string{}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return fmt.Errorf("parse legacy scope: %w", err)
	}
	migrated := 0
	for key, value := range legacy {
		existing, err := b.prefs.GetItem(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := b.prefs.SetItem(ctx, key, value); err != nil {
			return fmt.Errorf("migrate %s: %w", key, err)
		}
		migrated++
	}
	if err := b.prefs.SetItem(ctx, prefs.KeyLegacyMigrated, true); err != nil {
		return err
	}
	b.logger.Info("migrated legacy preferences", zap.Int("keys", migrated))
	return nil
}
