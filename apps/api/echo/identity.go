package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	errMissingFile = errors.New("Please upload a file")
	errNotAnImage  = errors.New("Please upload an image file")
)

// getIdentity returns the live user with the route ID, if it has the given role.
// resource names the role in not-found messages.
func getIdentity(ctx echo.Context, svc *user.Service, role user.Role, resource string) (user.User, error) {
	id := ctx.Param("id")
	usr, err := svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, core.NewNotFoundError(resource, id)
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if usr.Role() != role {
		return user.User{}, core.NewNotFoundError(resource, id)
	}
	return usr, nil
}

// checkSelfOrAdmin only lets admins and the target user themselves through.
func checkSelfOrAdmin(ctx echo.Context, target user.User, resource string) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsAdmin() || ctxUsr.ID == target.ID {
		return nil
	}
	return echo.NewHTTPError(http.StatusForbidden, "Unauthorized to update this "+strings.ToLower(resource))
}

// photoUploader stores the image of a multipart "file" field as a user's photo.
type photoUploader struct {
	store   core.PhotoStore
	users   *user.Service
	maxSize int64
}

func fileError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
}

func (up *photoUploader) upload(ctx echo.Context, usr user.User) (user.User, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return user.User{}, fileError(errMissingFile)
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return user.User{}, fileError(errNotAnImage)
	}
	if fh.Size > up.maxSize {
		return user.User{}, fileError(fmt.Errorf("Please upload an image less than %d", up.maxSize))
	}

	f, err := fh.Open()
	if err != nil {
		return user.User{}, errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	url, err := up.store.UploadPhoto(ctx.Request().Context(), core.Photo{
		Filename:    "photo_" + usr.ID + filepath.Ext(fh.Filename),
		ContentType: contentType,
		Size:        fh.Size,
		Content:     f,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return user.User{}, err
		}
		return user.User{}, echo.NewHTTPError(http.StatusInternalServerError, "Photo upload failed").SetInternal(err)
	}

	usr, err = up.users.SetPhoto(ctx.Request().Context(), usr, url)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting photo")
	}
	return usr, nil
}
