// Package service implements the API's use cases on top of the ports.
package service

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

const supabaseAudience = "authenticated"

// AccessClaims are the claims the API relies on in a Supabase access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService verifies dashboard access tokens issued by Supabase Auth and
// the shared secret presented by the scheduled trigger.
type AuthService struct {
	jwtSecret      []byte
	cronSecretHash []byte
	logger         *zap.Logger
}

// NewAuthService creates a new auth service. An empty cronSecretHash
// rejects every trigger call.
func NewAuthService(jwtSecret, cronSecretHash string, logger *zap.Logger) *AuthService {
	return &AuthService{
		jwtSecret:      []byte(jwtSecret),
		cronSecretHash: []byte(strings.TrimSpace(cronSecretHash)),
		logger:         logger,
	}
}

// ValidateAccessToken verifies an HS256 Supabase access token and returns
// its claims. The subject is the user ID.
func (s *AuthService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "token verification is not configured"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(supabaseAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Debug("access token rejected", zap.Error(err))
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// VerifyCronSecret checks the trigger secret against the configured bcrypt
// hash.
func (s *AuthService) VerifyCronSecret(secret string) error {
	if len(s.cronSecretHash) == 0 || secret == "" {
		return &domain.ErrUnauthorized{Message: "invalid cron secret"}
	}
	if err := bcrypt.CompareHashAndPassword(s.cronSecretHash, []byte(secret)); err != nil {
		return &domain.ErrUnauthorized{Message: "invalid cron secret"}
	}
	return nil
}
