package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := newResetTokenGenerator("secret", 3*24*time.Hour)

	usr := User{
		ID:      "5f8d0d55b54764421b7156c9",
		Name:    "T",
		Email:   "t@test.test",
		Profile: TeacherProfile{},
	}
	if err := usr.ChangePassword("pwd123"); err != nil {
		t.Fatalf("ChangePassword() failed: %v", err)
	}

	validToken, err := gen.makeToken(usr)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	lateGen := gen
	lateGen.nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := lateGen.makeToken(usr)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// a password change invalidates previous tokens
	changed := usr
	if err := changed.ChangePassword("pwd456"); err != nil {
		t.Fatalf("ChangePassword() failed: %v", err)
	}

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: changed, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "5f8d0d55b54764421b7156c9"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %s, want %s", id, usr.ID)
	}
}
