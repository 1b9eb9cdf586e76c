// Package http serves the quiz contract over REST. It presents the same
// routes and response shapes as the offline adapter so the UI works
// identically against either.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"quizbox/internal/app"
	"quizbox/internal/domain"
)

type Handler struct {
	svc      *app.Service
	signKey  []byte
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(svc *app.Service, signKey []byte, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		signKey:  signKey,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes builds the HTTP mux. The submission-detail pattern is more specific
// than the quiz wildcard, so the mux resolves the overlap correctly.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}", h.quizByID)
	mux.HandleFunc("GET /quizzes/submission/{id}", h.submissionDetails)
	mux.HandleFunc("POST /quizzes/{id}/submit", h.submitQuiz)

	mux.Handle("GET /users/profile", h.requireUser(h.userProfile))
	mux.Handle("PUT /users/profile", h.requireUser(h.updateProfile))
	mux.Handle("GET /users/stats", h.requireUser(h.userStats))
	mux.Handle("GET /users/submissions", h.requireUser(h.userSubmissions))

	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)
	return mux
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type submitRequest struct {
	Answers []*int `json:"answers" validate:"required"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.GetQuizzes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) quizByID(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.svc.GetQuizByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) submissionDetails(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetSubmissionDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// submitQuiz accepts authenticated users and anonymous quiz takers; the
// latter get a temporary user ID whose placeholder account the service
// synthesizes on first submission.
func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := h.userFromToken(r)
	if !ok {
		userID = "temp_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	result, err := h.svc.SubmitQuiz(r.Context(), r.PathValue("id"), userID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) userProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetUserProfile(r.Context(), userID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateUserProfile(r.Context(), userID(r.Context()), app.ProfileUpdate{
		Username: req.Username,
		Avatar:   req.Avatar,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Profile updated successfully",
		"avatarUrl": updated.Avatar,
	})
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetUserStats(r.Context(), userID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) userSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.GetUserSubmissions(r.Context(), userID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if _, err := h.svc.RegisterUser(r.Context(), req.Email, req.Password, req.Username); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrEmailExists):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateKey):
		status, message = http.StatusConflict, err.Error()
	default:
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
