package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))
	e.Use(RequestLogger(handler.logger))

	e.GET("/health", handler.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(handler.metrics.Handler()))

	v1 := e.Group("/v1")
	v1.POST("/sizes", handler.HandleSizes)
	v1.POST("/free", handler.HandleFree)
	v1.POST("/walk", handler.HandleWalk)

	return e
}

// RequestLogger returns an echo middleware that logs requests with zap.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			logger.Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Int64("latency_ms", time.Since(start).Milliseconds()),
				zap.String("ip", c.RealIP()),
				zap.Int64("bytes_out", res.Size),
			)

			return err
		}
	}
}
