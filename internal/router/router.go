// Package router wires HTTP routes to their handlers.  Public browse
// endpoints carry no middleware; everything else sits behind JWT
// authentication.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/furkanardicm/bloodshare-sub000/internal/handler"
	"github.com/furkanardicm/bloodshare-sub000/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the authentication endpoints.  Register,
// login and refresh live under /v1/auth and need no session; logout
// and /v1/me require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints:
// request listing and detail, and the donor search.  These are the
// routes the Redis response cache is applied to by the caller.
func RegisterPublic(e *echo.Echo, r *handler.RequestHandler, p *handler.ProfileHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/v1/requests", r.List, mw...)
	e.GET("/v1/requests/:id", r.Get, mw...)
	e.GET("/v1/donors", p.SearchDonors, mw...)
}

// RegisterProtected registers every endpoint that requires a valid
// access token: request creation, the donor-matching workflow, direct
// messaging and the caller's own views.
func RegisterProtected(e *echo.Echo, jwtSecret string,
	r *handler.RequestHandler, d *handler.DonorHandler, m *handler.MessageHandler, p *handler.ProfileHandler,
	mw ...echo.MiddlewareFunc) {

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.Use(mw...)

	// Blood requests
	auth.POST("/requests", r.Create)
	auth.GET("/me/requests", r.MyRequests)

	// Donor workflow
	auth.POST("/requests/:id/volunteer", d.Volunteer)
	auth.POST("/requests/:id/donors/:userId/approve", d.Approve)
	auth.POST("/requests/:id/donors/:userId/reject", d.Reject)
	auth.POST("/requests/:id/complete", d.Complete)
	auth.GET("/me/donations", d.MyDonations)
	auth.GET("/me/stats", p.Stats)

	// Direct messaging
	auth.POST("/messages", m.Send)
	auth.GET("/messages/:userId", m.Conversation)
	auth.POST("/messages/read", m.MarkRead)
	auth.PUT("/messages/:id", m.Edit)
	auth.DELETE("/messages/:id", m.Delete)
}
