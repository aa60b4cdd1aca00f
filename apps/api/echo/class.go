package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

type classApi struct {
	svc      *class.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, authn *authenticator, svc *class.Service, validate *validator.Validate) {
	api := classApi{svc: svc, validate: validate}
	admin := authn.Authorize(user.RoleAdmin)

	cg := g.Group("/classes")
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, admin)
	cg.PUT("/:id", api.update, admin)
	cg.PUT("/:id/assign-teacher", api.assignTeacher, admin)
	cg.DELETE("/:id", api.destroy, admin)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return respondData(ctx, http.StatusCreated, c)
}

func (api *classApi) query(ctx echo.Context) error {
	var pg Pagination
	if err := pg.Bind(ctx); err != nil {
		return err
	}

	classes, total, err := api.svc.Query(ctx.Request().Context(), pg.Page)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return respondList(ctx, "classes", pg.Page, total, len(classes), classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return respondData(ctx, http.StatusOK, c)
}

func (api *classApi) update(ctx echo.Context) error {
	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return respondData(ctx, http.StatusOK, c)
}

func (api *classApi) assignTeacher(ctx echo.Context) error {
	var data class.AssignTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.AssignTeacher(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Message: "Teacher assigned successfully", Data: c})
}

func (api *classApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return respondMessage(ctx, "Class deleted successfully")
}
