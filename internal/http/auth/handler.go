package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/auth"
	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/user"
)

type Handler struct {
	users    *user.Service
	tokens   *auth.Tokens
	sessions *session.Manager
}

func NewHandler(users *user.Service, tokens *auth.Tokens, sessions *session.Manager) *Handler {
	return &Handler{users: users, tokens: tokens, sessions: sessions}
}

// Routes mounts the unauthenticated endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/signup", h.signUp)
	r.Post("/login", h.login)
}

// Protected mounts the endpoints that require a valid token.
func (h *Handler) Protected(r chi.Router) {
	r.Post("/logout", h.logout)
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		DisplayName: u.DisplayName(),
		CreatedAt:   u.CreatedAt,
	}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.users.SignUp(r.Context(), user.SignUpParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			http.Error(w, "email already registered", http.StatusConflict)
		case errors.Is(err, user.ErrInvalid):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrBadCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// The session's transaction stream lives from login to logout.
	if _, err := h.sessions.Begin(r.Context(), u.ID); err != nil {
		slog.Error("failed to begin session", "user_id", u.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(u)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	h.sessions.End(userID)

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
