package http

import (
	"github.com/labstack/echo/v4"

	xutil "AstroOverlap/pkg/util"
)

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryList reads a comma-separated query parameter.
func QueryList(c echo.Context, name string) []string {
	return xutil.SplitList(c.QueryParam(name))
}
