package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cleared-dev/bankfeed/internal/buildinfo"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

type HealthHandler struct {
	formats []string
}

func NewHealthHandler(registry *statement.Registry) *HealthHandler {
	var formats []string
	for _, f := range registry.Formats() {
		formats = append(formats, string(f))
	}
	return &HealthHandler{formats: formats}
}

func (h *HealthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   buildinfo.Version,
		"formats":   h.formats,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
