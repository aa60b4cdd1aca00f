package user

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// DefaultPhoto is the photo of users who never uploaded one.
const DefaultPhoto = "user.jpg"

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Resource names users of the role in API messages.
func (r Role) Resource() string {
	switch r {
	case RoleTeacher:
		return "Teacher"
	case RoleStudent:
		return "Student"
	}
	return "User"
}

// Profile holds the role-specific attributes of a User. The concrete type decides the role.
type Profile interface {
	Role() Role
}

type (
	AdminProfile struct{}

	TeacherProfile struct {
		Subject string
	}

	StudentProfile struct {
		ClassID string
	}
)

func (AdminProfile) Role() Role   { return RoleAdmin }
func (TeacherProfile) Role() Role { return RoleTeacher }
func (StudentProfile) Role() Role { return RoleStudent }

// NewProfile returns the profile variant of role. Attributes that do not apply to role are dropped.
func NewProfile(role Role, subject, classID string) Profile {
	switch role {
	case RoleTeacher:
		return TeacherProfile{Subject: subject}
	case RoleStudent:
		return StudentProfile{ClassID: classID}
	default:
		return AdminProfile{}
	}
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Profile      Profile
	IsDeleted    bool
	Photo        string
	CreatedAt    time.Time // UTC
	UpdatedAt    time.Time // UTC
}

// New builds a User from validated input. The password is always hashed.
func New(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Profile:   NewProfile(Role(nu.Role), nu.Subject, nu.ClassID),
		Photo:     DefaultPhoto,
		CreatedAt: now,
		UpdatedAt: now,
	}
	hash, err := HashPassword(nu.Password)
	if err != nil {
		return User{}, err
	}
	usr.PasswordHash = hash
	return usr, nil
}

// ChangePassword re-hashes the password. It is the only way to replace a password hash.
func (u *User) ChangePassword(pwd string) error {
	hash, err := HashPassword(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (u User) CheckPassword(pwd string) bool {
	return CheckPassword(pwd, u.PasswordHash)
}

func (u User) Role() Role {
	if u.Profile == nil {
		return ""
	}
	return u.Profile.Role()
}

func (u User) Subject() string {
	if p, ok := u.Profile.(TeacherProfile); ok {
		return p.Subject
	}
	return ""
}

func (u User) ClassID() string {
	if p, ok := u.Profile.(StudentProfile); ok {
		return p.ClassID
	}
	return ""
}

func (u User) IsAdmin() bool   { return u.Role() == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role() == RoleTeacher }
func (u User) IsStudent() bool { return u.Role() == RoleStudent }

// HasAnyRole reports whether the user has one of roles.
func (u User) HasAnyRole(roles ...Role) bool {
	role := u.Role()
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type userJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Subject   string    `json:"subject,omitempty"`
	ClassID   string    `json:"classId,omitempty"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userJSON{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role(),
		Subject:   u.Subject(),
		ClassID:   u.ClassID(),
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin teacher student"`
	Subject  string `json:"subject"`
	ClassID  string `json:"classId" validate:"omitempty,objectid"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Subject = core.CleanString(nu.Subject)
	nu.ClassID = core.CleanString(nu.ClassID)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Nil fields are left untouched.
type UpdateUser struct {
	Name    *string `json:"name"`
	Subject *string `json:"subject"`
	ClassID *string `json:"classId"`
	Photo   *string `json:"photo"`
}

// Apply returns a copy of usr with the update applied. Role-specific fields are only
// accepted for the matching role.
func (uu UpdateUser) Apply(usr User) (User, error) {
	var fldErrs []core.FieldError

	if uu.Name != nil {
		if name := core.CleanString(*uu.Name); name != "" {
			usr.Name = name
		} else {
			fldErrs = append(fldErrs, core.FieldError{Field: "name", Error: "Please provide a name"})
		}
	}
	if uu.Photo != nil {
		if photo := core.CleanString(*uu.Photo); photo != "" {
			usr.Photo = photo
		} else {
			usr.Photo = DefaultPhoto
		}
	}

	switch p := usr.Profile.(type) {
	case TeacherProfile:
		if uu.Subject != nil {
			p.Subject = core.CleanString(*uu.Subject)
		}
		usr.Profile = p
	case StudentProfile:
		if uu.ClassID != nil {
			classID := core.CleanString(*uu.ClassID)
			if classID != "" && !core.IsValidID(classID) {
				fldErrs = append(fldErrs, core.FieldError{Field: "classId", Error: "classId must be a valid identifier"})
			} else {
				p.ClassID = classID
			}
		}
		usr.Profile = p
	}
	if uu.Subject != nil && !usr.IsTeacher() {
		fldErrs = append(fldErrs, core.FieldError{Field: "subject", Error: subjectRoleText})
	}
	if uu.ClassID != nil && !usr.IsStudent() {
		fldErrs = append(fldErrs, core.FieldError{Field: "classId", Error: classRoleText})
	}

	if len(fldErrs) > 0 {
		return User{}, core.NewValidationError(nil, fldErrs...)
	}
	usr.UpdateAt(time.Now())
	return usr, nil
}

// UpdateAt sets the modification time.
func (u *User) UpdateAt(t time.Time) {
	u.UpdatedAt = t.UTC()
}

// ChangeUserPassword is the input of a password change by the user themselves.
type ChangeUserPassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

func (cp ChangeUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Role    Role
	ClassID string
}

func (qf *QueryFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
}
