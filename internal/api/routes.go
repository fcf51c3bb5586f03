package api

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)

	g := e.Group("/api/sessions")
	g.POST("", h.HandleCreateSession)
	g.GET("/:id", h.HandleGetSession)
	g.DELETE("/:id", h.HandleDeleteSession)
	g.POST("/:id/keepalive", h.HandleKeepAlive)
	g.POST("/:id/documents", h.HandleUploadDocuments)
	g.GET("/:id/table", h.HandleGetTable)
	g.GET("/:id/table/msgpack", h.HandleGetTableMsgpack)
	g.PUT("/:id/rows/:row", h.HandleUpdateCell)
	g.GET("/:id/rows/:row/text", h.HandleGetText)
	g.GET("/:id/export", h.HandleExport)
}

// NewServer builds the Echo instance with error handling and middleware.
func NewServer(h *Handler, bodyLimit string, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}
	e.Use(RequestContext(logger))

	RegisterRoutes(e, h)
	return e
}

// RequestContext tags each request with an ID (taken from X-Request-ID when present)
// and a request-scoped logger, and logs the outcome.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			ctx := common.WithLogger(common.WithRequestID(req.Context(), rid), logger)
			if id := c.Param("id"); id != "" {
				ctx = common.WithSessionID(ctx, id)
			}
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			common.LoggerFromContext(ctx, logger).Info("http.request",
				"method", req.Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}
