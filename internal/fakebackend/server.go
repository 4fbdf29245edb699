// Package fakebackend is an in-memory implementation of the lead backend REST
// API for tests. It mirrors the routes, envelopes and error messages the
// client depends on, and nothing more.
package fakebackend

import (
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/domain"
)

const (
	defaultSecret   = "fakebackend-secret"
	defaultTokenTTL = 24 * time.Hour
)

// Options configures a Server.
type Options struct {
	Secret   string
	TokenTTL time.Duration
	// CookieOnly omits the token from the login body; it is only set as a cookie.
	CookieOnly bool
	Logger     zerolog.Logger
}

type user struct {
	domain.User
	passwordHash []byte
}

type fault struct {
	status  int
	message string
}

// Server holds users and leads in memory behind an echo router.
type Server struct {
	Echo *echo.Echo

	opts Options
	now  func() time.Time

	mu      sync.Mutex
	users   map[string]*user // by id
	leads   map[string]domain.Lead
	revoked map[string]bool
	faults  map[string]fault // by "METHOD route"
	hits    map[string]int
}

// New builds a Server with all routes registered under /api/v1.
func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = defaultSecret
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}

	s := &Server{
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		users:   map[string]*user{},
		leads:   map[string]domain.Lead{},
		revoked: map[string]bool{},
		faults:  map[string]fault{},
		hits:    map[string]int{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = newHTTPErrorHandler(opts.Logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(s.countAndInject)

	v1 := e.Group("/api/v1")

	v1.POST("/users/register", s.register)
	v1.POST("/users/login", s.login)

	authed := v1.Group("", s.auth)
	authed.POST("/users/logout", s.logout)
	authed.GET("/users/profile", s.profile)
	authed.PUT("/users/update-profile/:id", s.updateProfile)
	authed.POST("/users/change-password", s.changePassword)
	authed.DELETE("/users/delete-profile", s.deleteProfile)

	authed.GET("/leads/leads", s.listLeads)
	authed.POST("/leads/leads", s.createLead)
	authed.GET("/leads/leads/:id", s.getLead)
	authed.PUT("/leads/leads/:id", s.updateLead)
	authed.DELETE("/leads/leads/:id", s.deleteLead)

	s.Echo = e
	return s
}

// Start serves s on a local listener. The caller closes the returned server.
func Start(opts Options) (*Server, *httptest.Server) {
	s := New(opts)
	return s, httptest.NewServer(s.Echo)
}

// BaseURL is the API root for a server started at root.
func BaseURL(root string) string {
	return root + "/api/v1/"
}

// FailNext makes the next request to route ("METHOD /api/v1/...") fail with
// status and message before any handler or auth check runs.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	s.faults[route] = fault{status: status, message: message}
	s.mu.Unlock()
}

// Hits reports how many requests reached route ("METHOD /api/v1/...").
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// SetClock replaces the server clock used for timestamps and token expiry.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// countAndInject records hits per route and fires one-shot faults.
func (s *Server) countAndInject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + c.Path()
		s.mu.Lock()
		s.hits[route]++
		f, ok := s.faults[route]
		if ok {
			delete(s.faults, route)
		}
		s.mu.Unlock()

		if ok {
			return echo.NewHTTPError(f.status, f.message)
		}
		return next(c)
	}
}

func (s *Server) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func message(c echo.Context, status int, msg string, extra map[string]any) error {
	body := map[string]any{"message": msg}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(status, body)
}
