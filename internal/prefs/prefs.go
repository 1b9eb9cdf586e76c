// Package prefs provides a flat key/value preference scope with two backing
// mechanisms (local file, redis) behind one contract. Values are JSON
// round-tripped: non-string values are serialized on write and parsed on
// read. Reading a key whose stored value is not valid JSON returns the raw
// string rather than failing; some callers persist bare strings directly.
package prefs

import (
	"context"
	"encoding/json"
)

// Well-known preference keys.
const (
	KeyToken          = "token"
	KeyUserID         = "userId"
	KeyUsername       = "username"
	KeyEmail          = "email"
	KeyTheme          = "theme"
	KeyAppInitialized = "app_initialized"
	KeyLegacyMigrated = "legacy_migrated"
)

// Store is the preference scope contract. GetItem returns nil for an absent key.
type Store interface {
	SetItem(ctx context.Context, key string, value any) error
	GetItem(ctx context.Context, key string) (any, error)
	RemoveItem(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

// GetString reads a key and coerces the decoded value to a string.
// Absent keys and non-string values yield "".
func GetString(ctx context.Context, s Store, key string) string {
	v, err := s.GetItem(ctx, key)
	if err != nil {
		return ""
	}
	str, _ := v.(string)
	return str
}

// GetBool reads a key and coerces the decoded value to a bool.
// Absent keys and non-bool values yield false.
func GetBool(ctx context.Context, s Store, key string) bool {
	v, err := s.GetItem(ctx, key)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func encodeValue(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeValue parses stored JSON, falling back to the raw string for values
// that were written without serialization.
func decodeValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
