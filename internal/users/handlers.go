package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnab9957/CodeFuse/internal/utils"
)

// Handlers manages the user account endpoints.
type Handlers struct {
	Repo      *Repository
	JWTSecret string
	log       *zap.Logger
}

func NewHandlers(repo *Repository, jwtSecret string, log *zap.Logger) *Handlers {
	return &Handlers{Repo: repo, JWTSecret: jwtSecret, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token,omitempty"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "missing fields", http.StatusBadRequest)
		return
	}

	if existing, _ := h.Repo.GetByUsername(req.Username); existing != nil {
		http.Error(w, "username taken", http.StatusConflict)
		return
	}
	if existing, _ := h.Repo.GetByEmail(req.Email); existing != nil {
		http.Error(w, "email taken", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}
	user := &User{Username: req.Username, Email: req.Email, PasswordHash: string(hash)}
	if err := h.Repo.Create(user); err != nil {
		h.log.Error("create user failed", zap.Error(err))
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := h.signToken(user)
	if err != nil {
		http.Error(w, "failed to sign token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		ID: user.ID, Username: user.Username, Email: user.Email, Token: token,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	user, err := h.Repo.GetByEmail(req.Email)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.signToken(user)
	if err != nil {
		http.Error(w, "failed to sign token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID: user.ID, Username: user.Username, Email: user.Email, Token: token,
	})
}

// Logout exists for API symmetry; tokens are client-held, so there is
// nothing to revoke server-side.
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID: user.ID, Username: user.Username, Email: user.Email,
	})
}

// Update modifies username/email of the authenticated user. The path id
// must match the token subject.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authedUser(w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "id") != strconv.FormatUint(uint64(user.ID), 10) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	updated, err := h.Repo.Update(user.ID, &User{Username: req.Username, Email: req.Email})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID: updated.ID, Username: updated.Username, Email: updated.Email,
	})
}

func (h *Handlers) authedUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	claims, err := utils.VerifyToken(r, h.JWTSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	sub, err := utils.GetUserIDFromClaims(claims)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	user, err := h.Repo.GetByID(uint(id))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

func (h *Handlers) signToken(user *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
