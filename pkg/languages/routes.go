package languages

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Language is a supported code with its English display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RegisterRoutes exposes the supported languages at GET /languages.
func RegisterRoutes(e *echo.Echo, normalizer *Normalizer) {
	e.GET("/languages", func(c echo.Context) error {
		codes := normalizer.Codes()
		resp := make([]Language, 0, len(codes))
		for _, code := range codes {
			resp = append(resp, Language{Code: code, Name: DisplayName(code)})
		}
		return errors.WithStack(c.JSON(http.StatusOK, resp))
	})
}
