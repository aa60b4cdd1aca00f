package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

const studentResource = "Student"

type studentApi struct {
	svc      *user.Service
	classSvc *class.Service
	uploader *photoUploader
}

func registerStudentAPI(
	g *echo.Group,
	authn *authenticator,
	svc *user.Service,
	classSvc *class.Service,
	uploader *photoUploader,
) {
	api := studentApi{svc: svc, classSvc: classSvc, uploader: uploader}

	sg := g.Group("/students")
	sg.GET("", api.query, authn.Authorize(user.RoleAdmin, user.RoleStudent))
	sg.GET("/:id", api.retrieve, authn.Authorize(user.RoleAdmin, user.RoleStudent))
	sg.PUT("/:id", api.update, authn.Authorize(user.RoleAdmin, user.RoleStudent))
	sg.DELETE("/:id", api.destroy, authn.Authorize(user.RoleAdmin))
	sg.PUT("/:id/photo", api.uploadPhoto, authn.Authorize(user.RoleAdmin, user.RoleStudent))
}

type (
	studentListItem struct {
		ID    string     `json:"id"`
		Name  string     `json:"name"`
		Class *class.Ref `json:"class"`
	}

	studentDetail struct {
		ID    string     `json:"id"`
		Name  string     `json:"name"`
		Email string     `json:"email"`
		Photo string     `json:"photo"`
		Class *class.Ref `json:"class"`
	}
)

// classRefs resolves class references, once per class.
type classRefs struct {
	svc  *class.Service
	refs map[string]*class.Ref
}

func (cr *classRefs) get(ctx context.Context, id string) (*class.Ref, error) {
	if ref, ok := cr.refs[id]; ok {
		return ref, nil
	}
	ref, err := cr.svc.GetRef(ctx, id)
	if err != nil {
		return nil, err
	}
	cr.refs[id] = ref
	return ref, nil
}

func (api *studentApi) detail(ctx context.Context, usr user.User) (studentDetail, error) {
	ref, err := api.classSvc.GetRef(ctx, usr.ClassID())
	if err != nil {
		return studentDetail{}, errors.Wrap(err, "resolving class")
	}
	return studentDetail{ID: usr.ID, Name: usr.Name, Email: usr.Email, Photo: usr.Photo, Class: ref}, nil
}

func (api *studentApi) respondDetail(ctx echo.Context, usr user.User) error {
	d, err := api.detail(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, d)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	var pg Pagination
	if err := pg.Bind(ctx); err != nil {
		return err
	}
	filter := user.QueryFilter{Role: user.RoleStudent, ClassID: core.CleanString(ctx.QueryParam("classId"))}
	if filter.ClassID != "" && !core.IsValidID(filter.ClassID) {
		return core.NewValidationError(nil, core.FieldError{Field: "classId", Error: "classId must be a valid identifier"})
	}

	reqCtx := ctx.Request().Context()
	users, total, err := api.svc.Query(reqCtx, filter, pg.Page)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	refs := classRefs{svc: api.classSvc, refs: make(map[string]*class.Ref)}
	items := make([]studentListItem, 0, len(users))
	for _, usr := range users {
		ref, err := refs.get(reqCtx, usr.ClassID())
		if err != nil {
			return errors.Wrap(err, "resolving class")
		}
		items = append(items, studentListItem{ID: usr.ID, Name: usr.Name, Class: ref})
	}
	return respondList(ctx, "students", pg.Page, total, len(items), items)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleStudent, studentResource)
	if err != nil {
		return err
	}
	return api.respondDetail(ctx, usr)
}

func (api *studentApi) update(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleStudent, studentResource)
	if err != nil {
		return err
	}
	if err = checkSelfOrAdmin(ctx, usr, studentResource); err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return api.respondDetail(ctx, usr)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleStudent, studentResource)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return respondMessage(ctx, "Student deleted")
}

func (api *studentApi) uploadPhoto(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleStudent, studentResource)
	if err != nil {
		return err
	}
	if err = checkSelfOrAdmin(ctx, usr, studentResource); err != nil {
		return err
	}

	usr, err = api.uploader.upload(ctx, usr)
	if err != nil {
		return err
	}
	return api.respondDetail(ctx, usr)
}
