package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Logger writes one structured line per request. Staff requests carry the
// acting clinic and role so per-clinic traffic can be filtered; public
// booking and token self-service requests log without an actor.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			// The auth middlewares run after this one, so the actor must be
			// read from the request context, not captured before next(c).
			if actor, ok := auth.ActorFromContext(c.Request().Context()); ok {
				evt.
					Str("clinic_id", actor.ClinicID.String()).
					Str("role", actor.Role)
			}

			evt.Msg("request")
			return err
		}
	}
}
