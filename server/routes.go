package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
	RouteSession = "/session"
	RouteRenew   = "/session/renew"
	RouteLogout  = "/session/logout"
)

func (s *Server) initRoutes() {
	mw := s.StandardMiddleware()

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), mw...))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.RegisterRouteFunc("GET "+RouteSession, ChainMiddleware(s.SessionStatusHandler(), mw...))
	s.RegisterRouteFunc("DELETE "+RouteSession, ChainMiddleware(s.InvalidateSessionHandler(), mw...))
	s.RegisterRouteFunc("POST "+RouteRenew, ChainMiddleware(s.RenewSessionHandler(), mw...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), mw...))
}
