package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every response body.
// Data holds a single object; DataIterable holds a list.
type Envelope struct {
	Estado       bool        `json:"estado"`
	Message      string      `json:"message,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	DataIterable interface{} `json:"dataIterable,omitempty"`
}

func respondData(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, Envelope{Estado: true, Data: data})
}

// respondList always sends a JSON array, even when items is nil.
func respondList[T any](ctx echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return ctx.JSON(http.StatusOK, Envelope{Estado: true, DataIterable: items})
}

func respondMessage(ctx echo.Context, code int, msg string) error {
	return ctx.JSON(code, Envelope{Estado: true, Message: msg})
}
