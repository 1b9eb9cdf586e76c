// Package fixtures bundles the quiz content, demo accounts, and sample
// submissions shipped with the app. The bootstrap loader inserts them on
// first open of an empty store.
package fixtures

import (
	"embed"
	"encoding/json"
	"fmt"

	"quizbox/internal/domain"
)

//go:embed data/*.json
var dataFS embed.FS

// Data is the full fixture payload.
type Data struct {
	Quizzes     []domain.Quiz
	Users       []domain.User
	Submissions []domain.Submission
}

// Load parses the bundled fixture files.
func Load() (Data, error) {
	var d Data
	if err := loadFile("data/quizzes.json", &d.Quizzes); err != nil {
		return Data{}, err
	}
	if err := loadFile("data/users.json", &d.Users); err != nil {
		return Data{}, err
	}
	if err := loadFile("data/submissions.json", &d.Submissions); err != nil {
		return Data{}, err
	}
	return d, nil
}

func loadFile(name string, v any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse fixture %s: %w", name, err)
	}
	return nil
}
