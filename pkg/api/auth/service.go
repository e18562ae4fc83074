package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for JWT validation.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrMissingOwner        = errors.New("token carries no owner identity")
	ErrInvalidSecretLength = errors.New("JWT secret must be at least 32 characters")
)

// Config holds configuration for JWT validation.
type Config struct {
	// Secret is the HMAC key shared with the token issuer.
	// Must be at least 32 characters.
	Secret string `mapstructure:"secret" yaml:"secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `mapstructure:"issuer" yaml:"issuer,omitempty"`

	// Leeway tolerates clock skew between issuer and this server when
	// checking time-based claims. Default: 30s.
	Leeway time.Duration `mapstructure:"leeway" yaml:"leeway,omitempty"`
}

// Service validates bearer tokens for the drive API.
type Service struct {
	config Config
}

// NewService creates a JWT validation service with the given configuration.
func NewService(config Config) (*Service, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if config.Leeway == 0 {
		config.Leeway = 30 * time.Second
	}

	return &Service{config: config}, nil
}

// Validate parses and verifies a token, returning its claims.
// Tokens without an owner identity are rejected even when well signed.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(s.config.Leeway),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.OwnerID() == "" {
		return nil, ErrMissingOwner
	}

	return claims, nil
}
