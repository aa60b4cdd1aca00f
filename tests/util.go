package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

// NewConfig returns the configuration used by tests. No environment is read.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Shule",
		SecretKey:                 "test-secret",
		JWTExpirationDelta:        time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Shule", Address: "noreply@shule.test"},
		Upload: core.UploadConfig{
			MaxFileSize: 1000,
			Folder:      "photos",
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	subject, classID string,
) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Profile:   user.NewProfile(role, subject, classID),
		Photo:     user.DefaultPhoto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.ChangePassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name, teacherID string) class.Class {
	t.Helper()
	c, err := repo.CreateClass(context.Background(), class.Class{
		Name:      name,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}
