package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	errMissingCredentials = errors.New("Please provide email and password")
	errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
)

type authApi struct {
	authn    *authenticator
	svc      *user.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, authn *authenticator, svc *user.Service, validate *validator.Validate) {
	api := authApi{authn: authn, svc: svc, validate: validate}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	protect := authn.Protect()
	ag.GET("/me", api.me, protect)
	ag.GET("/logout", api.logout, protect)
	ag.PUT("/password", api.changePassword, protect)
}

type (
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	// AccountResponse is the acting user, as shown to themselves.
	AccountResponse struct {
		ID    string    `json:"id"`
		Name  string    `json:"name"`
		Email string    `json:"email"`
		Role  user.Role `json:"role"`
	}

	TokenResponse struct {
		AccountResponse
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	if lr.Email == "" || lr.Password == "" {
		return core.NewValidationError(errMissingCredentials)
	}
	return nil
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func newAccountResponse(usr user.User) AccountResponse {
	return AccountResponse{ID: usr.ID, Name: usr.Name, Email: usr.Email, Role: usr.Role()}
}

func (api *authApi) respondToken(ctx echo.Context, code int, usr user.User) error {
	token, err := api.authn.issueToken(ctx, usr)
	if err != nil {
		return err
	}
	return respondData(ctx, code, TokenResponse{AccountResponse: newAccountResponse(usr), Token: token})
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return api.respondToken(ctx, http.StatusCreated, usr)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return errInvalidCredentials
		}
		return errors.Wrap(err, "authenticating")
	}
	return api.respondToken(ctx, http.StatusOK, usr)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return respondData(ctx, http.StatusOK, newAccountResponse(usr))
}

func (api *authApi) logout(ctx echo.Context) error {
	api.authn.clearToken(ctx)
	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Data: echo.Map{}})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.ChangeUserPassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeUserPassword")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err = api.svc.ChangePassword(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "changing password")
	}
	return api.respondToken(ctx, http.StatusOK, usr)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return respondMessage(ctx,
		"If the email address supplied is associated with an active account on this system, "+
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	)
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return respondMessage(ctx, "Password has been reset with the new password.")
}
