// Package client implements the request-redirection adapter: it presents a
// normal HTTP-client-shaped interface to callers while routing a fixed
// whitelist of (method, path) combinations to the local domain operations
// instead of the network. Unmatched calls pass through to the real backend;
// connectivity failures on profile/stats reads degrade to best-effort data
// from the preference scope so the UI never hard-fails while offline.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizbox/internal/app"
	"quizbox/internal/domain"
	"quizbox/internal/prefs"
)

// Response mirrors the envelope the UI expects from a real server.
type Response struct {
	Status int
	Data   any
}

// Client dispatches calls against the offline route table.
type Client struct {
	svc    *app.Service
	prefs  prefs.Store
	boot   *app.Bootstrap
	http   *http.Client
	base   string
	routes []route
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL sets the real backend used for unmatched calls.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the network client used for pass-through calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(svc *app.Service, prefStore prefs.Store, boot *app.Bootstrap, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		prefs:  prefStore,
		boot:   boot,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Without a local service the client is a plain network client; every
	// call passes through and only the connectivity fallback remains.
	if c.svc != nil {
		c.routes = c.routeTable()
	}
	return c
}

// Do routes one outgoing call. Matched routes never touch the network; their
// result is wrapped as an HTTP-shaped response. Domain failures return both
// the error and a response carrying the translated status and message body,
// matching how HTTP client libraries attach the response to rejections.
func (c *Client) Do(ctx context.Context, method, path string, body any) (Response, error) {
	if c.boot != nil {
		// Memoized; concurrent callers share one run.
		_ = c.boot.Initialize(ctx)
	}

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("encode body: %w", err)
		}
	}

	for _, r := range c.routes {
		if r.method != method {
			continue
		}
		params, ok := matchPath(r.pattern, path)
		if !ok {
			continue
		}
		status, data, err := r.handle(ctx, params, raw)
		if err != nil {
			errStatus, message := translateError(err)
			c.logger.Debug("offline route failed",
				zap.String("method", method), zap.String("path", path),
				zap.Int("status", errStatus), zap.Error(err))
			return Response{Status: errStatus, Data: map[string]string{"message": message}}, err
		}
		return Response{Status: status, Data: data}, nil
	}

	return c.passthrough(ctx, method, path, raw)
}

// translateError is the single place domain error kinds become HTTP statuses.
func translateError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrEmailExists):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// matchPath compares slash-separated segments; ":name" segments bind params.
func matchPath(pattern, path string) (map[string]string, bool) {
	patternSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternSegs) != len(pathSegs) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range patternSegs {
		if strings.HasPrefix(seg, ":") {
			if pathSegs[i] == "" {
				return nil, false
			}
			params[seg[1:]] = pathSegs[i]
			continue
		}
		if seg != pathSegs[i] {
			return nil, false
		}
	}
	return params, true
}
