// Package auth issues and verifies the signed session tokens handed out at login.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims represents the authorization claims transmitted via a session token.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens with a single secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the Issuer reading the current time from now.
func (iss *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *iss
	cp.now = now
	return &cp
}

// TTL is how long issued tokens stay valid.
func (iss *Issuer) TTL() time.Duration { return iss.ttl }

// Issue returns a signed token for the given subject.
func (iss *Issuer) Issue(userID, role string) (string, error) {
	now := iss.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(iss.ttl)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Verify checks the token signature and expiry and returns its claims.
// A token is expired from the very second its expiry is reached.
func (iss *Issuer) Verify(token string) (Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return iss.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(iss.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Role == "" {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}
