package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// JWTSigner issues and verifies HS256 bearer tokens whose subject is the
// caller's ledger account.
type JWTSigner struct {
	issuer string
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

func NewJWTSigner(issuer, secret string, ttl time.Duration) (*JWTSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTSigner{issuer: issuer, secret: []byte(secret), ttl: ttl, nowFn: time.Now}, nil
}

func (s *JWTSigner) Sign(account domain.Account) (string, error) {
	if account.IsZero() {
		return "", domain.ErrInvalidInput
	}
	now := s.nowFn().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   account.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

func (s *JWTSigner) Verify(_ context.Context, raw string) (ports.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(s.nowFn),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return ports.AuthClaims{}, err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, errors.New("invalid token claims")
	}
	account := domain.NormalizeAccount(claims.Subject)
	if account.IsZero() {
		return ports.AuthClaims{}, errors.New("token has no subject")
	}
	return ports.AuthClaims{Account: account, Valid: true}, nil
}
