package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"quizbox/internal/domain"
	"quizbox/internal/prefs"
)

// passthrough sends an unmatched call over the real network. A connectivity
// failure (no response at all) on known read paths degrades to data
// reconstructed from the preference scope; that data is best-effort, not
// authoritative.
func (c *Client) passthrough(ctx context.Context, method, path string, body []byte) (Response, error) {
	if c.base == "" {
		if fb, ok := c.offlineFallback(ctx, method, path); ok {
			return fb, nil
		}
		return Response{}, fmt.Errorf("no route for %s %s and no backend configured", method, path)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := prefs.GetString(ctx, c.prefs, prefs.KeyToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("network call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		if fb, ok := c.offlineFallback(ctx, method, path); ok {
			return fb, nil
		}
		return Response{}, fmt.Errorf("network call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil && err != io.EOF {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return Response{Status: resp.StatusCode, Data: data}, nil
}

// offlineFallback keeps the UI alive through transient offline conditions by
// answering profile and stats reads from locally known state.
func (c *Client) offlineFallback(ctx context.Context, method, path string) (Response, bool) {
	if method != http.MethodGet {
		return Response{}, false
	}
	switch path {
	case "/users/profile":
		profile := map[string]any{
			"username": prefs.GetString(ctx, c.prefs, prefs.KeyUsername),
			"email":    prefs.GetString(ctx, c.prefs, prefs.KeyEmail),
			"avatar":   prefs.GetString(ctx, c.prefs, "avatar"),
		}
		c.logger.Info("serving profile from preference scope", zap.String("path", path))
		return Response{Status: http.StatusOK, Data: profile}, true
	case "/users/stats":
		return Response{Status: http.StatusOK, Data: domain.Stats{}}, true
	}
	return Response{}, false
}
