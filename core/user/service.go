package user

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("Password is incorrect")
	ErrInvalidClass       = errors.New("Invalid or non-existent class ID")
)

type (
	// Repository persists users. Soft-deleted users are invisible to every method.
	Repository interface {
		// CreateUser returns a *core.DuplicateKeyError if the email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		// GetUserByID returns a *core.InvalidIDError for malformed IDs and ErrNotFound for unknown ones.
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND on the set QueryFilter fields and returns the page and the total count.
		QueryUsers(ctx context.Context, filter QueryFilter, page core.Page) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser flags the user as deleted.
		DeleteUser(ctx context.Context, id string) error
	}

	// ClassDirectory is the part of the class store that users depend on.
	ClassDirectory interface {
		ClassExists(ctx context.Context, id string) (bool, error)
		// IncStudentCount is a no-op for unknown classes.
		IncStudentCount(ctx context.Context, id string, delta int) error
	}

	Service struct {
		repo     Repository
		classes  ClassDirectory
		mailSvc  core.EmailService
		tokenGen resetTokenGenerator
	}
)

func NewService(repo Repository, classes ClassDirectory, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		classes:  classes,
		mailSvc:  mailSvc,
		tokenGen: newResetTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

// storeError reports a user that vanished from the store as a *core.NotFoundError.
func storeError(usr User, err error, msg string) error {
	if errors.Cause(err) == ErrNotFound {
		return core.NewNotFoundError(usr.Role().Resource(), usr.ID)
	}
	return errors.Wrap(err, msg)
}

func (svc *Service) checkClass(ctx context.Context, classID string) error {
	if classID == "" {
		return nil
	}
	ok, err := svc.classes.ClassExists(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "checking class")
	}
	if !ok {
		return core.NewValidationError(ErrInvalidClass, core.FieldError{Field: "classId", Error: ErrInvalidClass.Error()})
	}
	return nil
}

// Create registers a validated NewUser. Students joining a class are counted in it.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr, err := New(nu)
	if err != nil {
		return User{}, err
	}
	if err = svc.checkClass(ctx, usr.ClassID()); err != nil {
		return User{}, err
	}

	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	if classID := usr.ClassID(); classID != "" {
		if err = svc.classes.IncStudentCount(ctx, classID, 1); err != nil {
			return User{}, errors.Wrap(err, "counting student")
		}
	}
	return usr, nil
}

// Authenticate returns the user matching the credentials, or ErrInvalidCredentials.
// Unknown emails and wrong passwords are indistinguishable.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			CheckPassword(pwd, nil)
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if !usr.CheckPassword(pwd) {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page) ([]User, int, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, page)
}

// Update applies uu to usr. A student moving class is uncounted from the old one.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	updated, err := uu.Apply(usr)
	if err != nil {
		return User{}, err
	}

	oldClass, newClass := usr.ClassID(), updated.ClassID()
	if newClass != oldClass {
		if err = svc.checkClass(ctx, newClass); err != nil {
			return User{}, err
		}
	}

	updated, err = svc.repo.UpdateUser(ctx, updated)
	if err != nil {
		return User{}, storeError(usr, err, "updating user")
	}

	if newClass != oldClass {
		if err = svc.moveStudent(ctx, oldClass, newClass); err != nil {
			return User{}, err
		}
	}
	return updated, nil
}

func (svc *Service) moveStudent(ctx context.Context, from, to string) error {
	if from != "" {
		if err := svc.classes.IncStudentCount(ctx, from, -1); err != nil {
			return errors.Wrap(err, "uncounting student")
		}
	}
	if to != "" {
		if err := svc.classes.IncStudentCount(ctx, to, 1); err != nil {
			return errors.Wrap(err, "counting student")
		}
	}
	return nil
}

// SetPhoto replaces the photo URL of usr.
func (svc *Service) SetPhoto(ctx context.Context, usr User, url string) (User, error) {
	photo := url
	return svc.Update(ctx, usr, UpdateUser{Photo: &photo})
}

// ChangePassword checks the current password before setting the new one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangeUserPassword) (User, error) {
	if !usr.CheckPassword(cp.CurrentPassword) {
		return User{}, core.NewValidationError(
			ErrWrongPassword,
			core.FieldError{Field: "currentPassword", Error: ErrWrongPassword.Error()},
		)
	}
	if err := usr.ChangePassword(cp.NewPassword); err != nil {
		return User{}, err
	}
	updated, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, storeError(usr, err, "updating user")
	}
	return updated, nil
}

// Delete soft-deletes usr. A deleted student is uncounted from its class.
func (svc *Service) Delete(ctx context.Context, usr User) error {
	if err := svc.repo.DeleteUser(ctx, usr.ID); err != nil {
		return storeError(usr, err, "deleting user")
	}
	return svc.moveStudent(ctx, usr.ClassID(), "")
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	token, err := svc.tokenGen.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Email": usr.Email,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

// RequestPasswordReset mails a reset link to the user owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return svc.sendPasswordResetMail(usr)
}

// ResetPassword sets a new password if the reset token is valid.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	errInvalid := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})

	id, err := decodeUID(data.UID)
	if err != nil {
		return errInvalid
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound || core.IsNotFound(err) {
			return errInvalid
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		if err == errTokenExpired {
			return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
		}
		return errInvalid
	}
	if err = usr.ChangePassword(data.Password); err != nil {
		return err
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
