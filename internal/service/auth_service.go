package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/classgrid-api/internal/models"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
)

// AuthConfig defines how access tokens are verified.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
}

// AuthService verifies HS256 access tokens minted by the identity provider.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, config: config, now: time.Now}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !claims.Role.Valid() {
		s.logger.Warn("token carries unknown role", zap.String("user_id", claims.UserID), zap.String("role", string(claims.Role)))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
	return claims, nil
}

// IssueToken signs a token for local tooling and tests.
func (s *AuthService) IssueToken(userID, email string, role models.UserRole, ttl time.Duration) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
