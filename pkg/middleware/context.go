// Package middleware provides the echo middleware stack: request context,
// request logging, and error translation.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	reqcontext "github.com/Ramsey-B/laurel/pkg/context"
)

// HeaderUserID is the header key carrying the reviewer identity
const HeaderUserID = "X-User-ID"

// Context populates the request context with request metadata
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			userID := req.Header.Get(HeaderUserID)

			ctx := req.Context()
			ctx = reqcontext.SetRequestID(ctx, requestID)
			ctx = reqcontext.SetMethod(ctx, req.Method)
			ctx = reqcontext.SetRoute(ctx, req.URL.Path)
			ctx = reqcontext.SetRemoteIP(ctx, c.RealIP())
			ctx = reqcontext.SetUserID(ctx, userID)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
