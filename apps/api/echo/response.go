package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

type (
	dataResponse struct {
		Success bool        `json:"success"`
		Message string      `json:"message,omitempty"`
		Data    interface{} `json:"data"`
	}

	listResponse struct {
		Success bool        `json:"success"`
		Count   int         `json:"count"`
		Total   int         `json:"total"`
		Page    int         `json:"page"`
		Pages   int         `json:"pages"`
		Data    interface{} `json:"data"`
	}

	messageResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
)

func respondData(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, dataResponse{Success: true, Data: data})
}

func respondMessage(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusOK, messageResponse{Success: true, Message: msg})
}

// respondList sends one page of a listing. An empty page is a 404 naming the resources.
func respondList(ctx echo.Context, resources string, page core.Page, total, count int, data interface{}) error {
	if count == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No "+resources+" found")
	}
	return ctx.JSON(http.StatusOK, listResponse{
		Success: true,
		Count:   count,
		Total:   total,
		Page:    page.Number,
		Pages:   page.Pages(total),
		Data:    data,
	})
}
