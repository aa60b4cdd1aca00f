package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

const teacherResource = "Teacher"

type teacherApi struct {
	svc      *user.Service
	uploader *photoUploader
}

func registerTeacherAPI(g *echo.Group, authn *authenticator, svc *user.Service, uploader *photoUploader) {
	api := teacherApi{svc: svc, uploader: uploader}

	tg := g.Group("/teachers")
	tg.GET("", api.query, authn.Authorize(user.RoleAdmin, user.RoleTeacher))
	tg.GET("/:id", api.retrieve, authn.Authorize(user.RoleAdmin, user.RoleTeacher))
	tg.PUT("/:id", api.update, authn.Authorize(user.RoleAdmin, user.RoleTeacher))
	tg.DELETE("/:id", api.destroy, authn.Authorize(user.RoleAdmin))
	tg.PUT("/:id/photo", api.uploadPhoto, authn.Authorize(user.RoleAdmin, user.RoleTeacher))
}

type (
	teacherListItem struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	teacherDetail struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Subject string `json:"subject"`
		Photo   string `json:"photo"`
	}
)

func newTeacherDetail(usr user.User) teacherDetail {
	return teacherDetail{ID: usr.ID, Name: usr.Name, Subject: usr.Subject(), Photo: usr.Photo}
}

// Handlers

func (api *teacherApi) query(ctx echo.Context) error {
	var pg Pagination
	if err := pg.Bind(ctx); err != nil {
		return err
	}

	users, total, err := api.svc.Query(ctx.Request().Context(), user.QueryFilter{Role: user.RoleTeacher}, pg.Page)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	items := make([]teacherListItem, 0, len(users))
	for _, usr := range users {
		items = append(items, teacherListItem{ID: usr.ID, Name: usr.Name})
	}
	return respondList(ctx, "teachers", pg.Page, total, len(items), items)
}

func (api *teacherApi) retrieve(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleTeacher, teacherResource)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, newTeacherDetail(usr))
}

func (api *teacherApi) update(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleTeacher, teacherResource)
	if err != nil {
		return err
	}
	if err = checkSelfOrAdmin(ctx, usr, teacherResource); err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return respondData(ctx, http.StatusOK, newTeacherDetail(usr))
}

func (api *teacherApi) destroy(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleTeacher, teacherResource)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return respondMessage(ctx, "Teacher deleted")
}

func (api *teacherApi) uploadPhoto(ctx echo.Context) error {
	usr, err := getIdentity(ctx, api.svc, user.RoleTeacher, teacherResource)
	if err != nil {
		return err
	}
	if err = checkSelfOrAdmin(ctx, usr, teacherResource); err != nil {
		return err
	}

	usr, err = api.uploader.upload(ctx, usr)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, newTeacherDetail(usr))
}
