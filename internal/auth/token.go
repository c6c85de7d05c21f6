// Package auth issues and verifies the application's signed tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Email verification links expire after 30 minutes.
const emailTokenTTL = 30 * time.Minute

var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	secretKey []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		expiresIn: expiresIn,
	}
}

// GenerateSessionToken signs a bearer token carrying the user id.
func (s *TokenService) GenerateSessionToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseSessionToken validates a bearer token and returns the user id.
func (s *TokenService) ParseSessionToken(tokenStr string) (int64, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return 0, err
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}
	userID := int64(userIDFloat)
	if userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// GenerateEmailToken signs a short-lived token tying an email address to the
// verification flow.
func (s *TokenService) GenerateEmailToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"email":   email,
		"purpose": "email-verification",
		"exp":     time.Now().Add(emailTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseEmailToken validates a verification token and returns the email it was
// issued for.
func (s *TokenService) ParseEmailToken(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", err
	}

	if purpose, _ := claims["purpose"].(string); purpose != "email-verification" {
		return "", ErrInvalidToken
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}

func (s *TokenService) parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
