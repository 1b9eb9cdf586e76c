package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quizbox/internal/app"
	"quizbox/internal/prefs"
)

type handlerFunc func(ctx context.Context, params map[string]string, body []byte) (int, any, error)

type route struct {
	method  string
	pattern string
	handle  handlerFunc
}

// routeTable is the whitelist of calls served locally. Order matters:
// /quizzes/submission/:id must precede the /quizzes/:id wildcard.
func (c *Client) routeTable() []route {
	return []route{
		{http.MethodGet, "/quizzes", c.listQuizzes},
		{http.MethodGet, "/quizzes/submission/:id", c.submissionDetails},
		{http.MethodGet, "/quizzes/:id", c.quizByID},
		{http.MethodPost, "/quizzes/:id/submit", c.submitQuiz},
		{http.MethodGet, "/users/profile", c.userProfile},
		{http.MethodPut, "/users/profile", c.updateProfile},
		{http.MethodGet, "/users/stats", c.userStats},
		{http.MethodGet, "/users/submissions", c.userSubmissions},
		{http.MethodPost, "/auth/register", c.register},
		{http.MethodPost, "/auth/login", c.login},
	}
}

func (c *Client) listQuizzes(ctx context.Context, _ map[string]string, _ []byte) (int, any, error) {
	quizzes, err := c.svc.GetQuizzes(ctx)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, quizzes, nil
}

func (c *Client) quizByID(ctx context.Context, params map[string]string, _ []byte) (int, any, error) {
	quiz, err := c.svc.GetQuizByID(ctx, params["id"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, quiz, nil
}

func (c *Client) submitQuiz(ctx context.Context, params map[string]string, body []byte) (int, any, error) {
	var req struct {
		Answers []*int `json:"answers"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return 0, nil, fmt.Errorf("decode submit body: %w", err)
	}
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return 0, nil, err
	}
	result, err := c.svc.SubmitQuiz(ctx, params["id"], userID, req.Answers)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, result, nil
}

func (c *Client) submissionDetails(ctx context.Context, params map[string]string, _ []byte) (int, any, error) {
	detail, err := c.svc.GetSubmissionDetails(ctx, params["id"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, detail, nil
}

func (c *Client) userProfile(ctx context.Context, _ map[string]string, _ []byte) (int, any, error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return 0, nil, err
	}
	profile, err := c.svc.GetUserProfile(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, profile, nil
}

func (c *Client) updateProfile(ctx context.Context, _ map[string]string, body []byte) (int, any, error) {
	var req struct {
		Username *string `json:"username"`
		Avatar   *string `json:"avatar"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return 0, nil, fmt.Errorf("decode profile body: %w", err)
	}
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return 0, nil, err
	}
	updated, err := c.svc.UpdateUserProfile(ctx, userID, app.ProfileUpdate{
		Username: req.Username,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return 0, nil, err
	}
	// Keep the preference scope in sync; the connectivity fallback reads it.
	if req.Username != nil {
		_ = c.prefs.SetItem(ctx, prefs.KeyUsername, updated.Username)
	}
	if req.Avatar != nil {
		_ = c.prefs.SetItem(ctx, "avatar", updated.Avatar)
	}
	return http.StatusOK, map[string]string{
		"message":   "Profile updated successfully",
		"avatarUrl": updated.Avatar,
	}, nil
}

func (c *Client) userStats(ctx context.Context, _ map[string]string, _ []byte) (int, any, error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return 0, nil, err
	}
	stats, err := c.svc.GetUserStats(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, stats, nil
}

func (c *Client) userSubmissions(ctx context.Context, _ map[string]string, _ []byte) (int, any, error) {
	userID, err := c.currentUserID(ctx)
	if err != nil {
		return 0, nil, err
	}
	subs, err := c.svc.GetUserSubmissions(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, subs, nil
}

func (c *Client) register(ctx context.Context, _ map[string]string, body []byte) (int, any, error) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return 0, nil, fmt.Errorf("decode register body: %w", err)
	}
	if _, err := c.svc.RegisterUser(ctx, req.Email, req.Password, req.Username); err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, map[string]string{"message": "User registered successfully"}, nil
}

func (c *Client) login(ctx context.Context, _ map[string]string, body []byte) (int, any, error) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return 0, nil, fmt.Errorf("decode login body: %w", err)
	}
	user, token, err := c.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return 0, nil, err
	}
	// Persist the session; later calls resolve the current user from here
	// and the connectivity fallback reconstructs profile data from it.
	_ = c.prefs.SetItem(ctx, prefs.KeyToken, token)
	_ = c.prefs.SetItem(ctx, prefs.KeyUserID, user.ID)
	_ = c.prefs.SetItem(ctx, prefs.KeyUsername, user.Username)
	_ = c.prefs.SetItem(ctx, prefs.KeyEmail, user.Email)
	if user.Avatar != "" {
		_ = c.prefs.SetItem(ctx, "avatar", user.Avatar)
	}
	return http.StatusOK, map[string]string{"token": token}, nil
}

// currentUserID resolves the active user from the preference scope. When
// nobody is logged in, a temporary user ID is minted and persisted; the
// service synthesizes its placeholder account on first submission.
func (c *Client) currentUserID(ctx context.Context) (string, error) {
	if id := prefs.GetString(ctx, c.prefs, prefs.KeyUserID); id != "" {
		return id, nil
	}
	id := "temp_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := c.prefs.SetItem(ctx, prefs.KeyUserID, id); err != nil {
		return "", fmt.Errorf("persist temp user: %w", err)
	}
	return id, nil
}
