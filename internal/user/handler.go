package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tulisbareng/internal/auth"
	"tulisbareng/middleware"
	"tulisbareng/pkg/apperr"
	"tulisbareng/pkg/logger"
)

// Handler serves registration, login and profile management. Avatar values
// are opaque filename references; upload handling lives elsewhere.
type Handler struct {
	Repo     *Repository
	Tokens   *auth.TokenManager
	validate *validator.Validate
}

func NewHandler(repo *Repository, tokens *auth.TokenManager) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, validate: validator.New()}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  Public `json:"user"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Name, email and password (min 8 chars) are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Sugar.Errorf("Failed to hash password: %v", err)
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	u := &User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Avatar:       req.Avatar,
	}
	if err := h.Repo.Create(u); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(u.Public())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	u, err := h.Repo.GetByEmail(req.Email)
	if err != nil || !auth.ComparePassword(u.PasswordHash, req.Password) {
		// Same response for unknown email and wrong password.
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		logger.Sugar.Errorf("Failed to issue token for user %s: %v", u.ID, err)
		http.Error(w, "Failed to login", http.StatusInternalServerError)
		return
	}

	// Cookie for browser clients, token in the body for everyone else.
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Tokens.TTL().Seconds()),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, User: u.Public()})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	u, err := h.Repo.GetByID(userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u.Public())
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.Repo.GetByID(userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Avatar != "" {
		u.Avatar = req.Avatar
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			logger.Sugar.Errorf("Failed to hash password: %v", err)
			http.Error(w, "Failed to update profile", http.StatusInternalServerError)
			return
		}
		u.PasswordHash = hash
	}

	if err := h.Repo.UpdateProfile(u); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u.Public())
}
