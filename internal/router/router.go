package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-booking/internal/handler"
	"github.com/iliyamo/meeting-room-booking/internal/middleware"
)

// RegisterRoutes registers the routes that do not require authentication:
// liveness, readiness against the database and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metricsHandler http.Handler) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
}

// RegisterAuth registers the authentication routes.  Register, login,
// refresh and logout live under /v1/auth and need no session; /v1/me
// requires a valid access token.  A new user changes the invitable list,
// so registering drops its cached copies.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, cache *middleware.ResponseCache) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, cache.Invalidates(usersTag))
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts a refresh token, a bearer token, or both
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// Protected returns the /v1 group shared by the booking routes: every route
// requires a valid access token and is rate limited per caller.
func Protected(e *echo.Echo, jwtSecret string, rateLimit echo.MiddlewareFunc) *echo.Group {
	mws := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	if rateLimit != nil {
		mws = append(mws, rateLimit)
	}
	return e.Group("/v1", mws...)
}
