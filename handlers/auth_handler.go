package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/services"
)

const tokenTTL = 12 * time.Hour

// AuthHandler issues admin JWTs. There is a single admin identity configured
// through a bcrypt hash in the environment.
type AuthHandler struct {
	adminPasswordHash string
	jwtSecret         string
	logger            *slog.Logger
}

func NewAuthHandler(adminPasswordHash, jwtSecret string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		adminPasswordHash: adminPasswordHash,
		jwtSecret:         jwtSecret,
		logger:            logger,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(input.Password)); err != nil {
		mapServiceError(w, h.logger, services.ErrInvalidCredentials)
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		mapServiceError(w, h.logger, err)
		return
	}

	_ = writeJSON(w, http.StatusOK, jsonResponse{"token": signed}, nil)
}
