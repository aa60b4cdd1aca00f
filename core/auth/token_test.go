package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "secret"
	testID     = "5f8d0d55b54764421b7156c9"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssuer_IssueVerify(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Hour).WithClock(fixedClock(now))

	for _, role := range []string{"admin", "teacher", "student"} {
		t.Run(role, func(t *testing.T) {
			token, err := iss.Issue(testID, role)
			require.NoError(t, err)

			claims, err := iss.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, testID, claims.UserID)
			assert.Equal(t, role, claims.Role)
			assert.Equal(t, now, claims.IssuedAt.Time.UTC())
			assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time.UTC())
		})
	}
}

func TestIssuer_IssueTwice(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Hour).WithClock(fixedClock(now))

	tok1, err := iss.Issue(testID, "teacher")
	require.NoError(t, err)
	tok2, err := iss.Issue(testID, "teacher")
	require.NoError(t, err)

	c1, err := iss.Verify(tok1)
	require.NoError(t, err)
	c2, err := iss.Verify(tok2)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestIssuer_Verify(t *testing.T) {
	issuedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Hour).WithClock(fixedClock(issuedAt))

	token, err := iss.Issue(testID, "student")
	require.NoError(t, err)

	otherKey, err := NewIssuer("another secret", time.Hour).WithClock(fixedClock(issuedAt)).Issue(testID, "student")
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: testID,
		Role:   "student",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: testID,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: testID, Role: "admin"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name    string
		token   string
		now     time.Time
		wantErr error
	}{
		{name: "valid", token: token, now: issuedAt.Add(30 * time.Minute)},
		{name: "one second before expiry", token: token, now: issuedAt.Add(time.Hour - time.Second)},
		{name: "expiry equals now", token: token, now: issuedAt.Add(time.Hour), wantErr: ErrExpiredToken},
		{name: "after expiry", token: token, now: issuedAt.Add(2 * time.Hour), wantErr: ErrExpiredToken},
		{name: "empty", token: "", now: issuedAt, wantErr: ErrInvalidToken},
		{name: "malformed", token: "not.a.token", now: issuedAt, wantErr: ErrInvalidToken},
		{name: "tampered payload", token: tampered, now: issuedAt, wantErr: ErrInvalidToken},
		{name: "other signing key", token: otherKey, now: issuedAt, wantErr: ErrInvalidToken},
		{name: "unexpected algorithm", token: hs512, now: issuedAt, wantErr: ErrInvalidToken},
		{name: "alg none", token: none, now: issuedAt, wantErr: ErrInvalidToken},
		{name: "no expiry", token: noExpiry, now: issuedAt, wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := iss.WithClock(fixedClock(tt.now)).Verify(tt.token)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Empty(t, claims.UserID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testID, claims.UserID)
			assert.Equal(t, "student", claims.Role)
		})
	}
}
