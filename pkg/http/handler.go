package http

import "github.com/labstack/echo/v4"

// Handler registers a group of routes.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Handlers registers several handlers in order.
type Handlers []Handler

func (hs Handlers) RegisterRoutes(e *echo.Echo) {
	for _, h := range hs {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
