package middleware

import (
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a Templ component to the response with the given status
// code. Used for the HTML fragments the host runtime embeds in its UI.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(c.Request().Context(), c.Response().Writer)
}
