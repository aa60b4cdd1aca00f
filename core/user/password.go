package user

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no user matches, so that unknown emails
// take as long to reject as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not a password"), bcrypt.DefaultCost)

// HashPassword returns the salted bcrypt hash of pwd.
func HashPassword(pwd string) ([]byte, error) {
	if pwd == "" {
		return nil, errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	return hash, nil
}

// CheckPassword reports whether pwd matches hash. It never fails.
func CheckPassword(pwd string, hash []byte) bool {
	if len(hash) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd)) == nil
}
