package fakebackend

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadflow/leadctl/internal/core/domain"
)

const (
	ctxUserID = "user_id"
	ctxToken  = "token"
)

// auth validates the bearer token (or the token cookie) and injects the user id.
func (s *Server) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearer(c.Request())
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token")
		}

		claims := jwt.MapClaims{}
		tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(s.opts.Secret), nil
		}, jwt.WithTimeFunc(s.clock))
		if err != nil || !tkn.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, invalid token")
		}

		sub, _ := claims.GetSubject()
		s.mu.Lock()
		revoked := s.revoked[raw]
		_, exists := s.users[sub]
		s.mu.Unlock()
		if revoked || !exists {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, session ended")
		}

		c.Set(ctxUserID, sub)
		c.Set(ctxToken, raw)
		return next(c)
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if ck, err := r.Cookie(ctxToken); err == nil {
		return ck.Value
	}
	return ""
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || req.FirstName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "All fields are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByEmail(email) != nil {
		return errUserExists
	}
	u := &user{
		User:         domain.User{ID: uuid.NewString(), FirstName: req.FirstName, LastName: req.LastName, Email: email},
		passwordHash: hash,
	}
	s.users[u.ID] = u
	return message(c, http.StatusCreated, "User registered successfully", map[string]any{"user": u.User})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	u := s.findByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		return errInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{Name: ctxToken, Value: token, Path: "/", HttpOnly: true})

	extra := map[string]any{"user": u.User}
	if !s.opts.CookieOnly {
		extra["token"] = token
	}
	return message(c, http.StatusOK, "Login successful", extra)
}

func (s *Server) logout(c echo.Context) error {
	s.revoke(c)
	c.SetCookie(&http.Cookie{Name: ctxToken, Value: "", Path: "/", MaxAge: -1})
	return message(c, http.StatusOK, "Logged out successfully", nil)
}

func (s *Server) profile(c echo.Context) error {
	u, err := s.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": u})
}

func (s *Server) updateProfile(c echo.Context) error {
	if c.Param("id") != c.Get(ctxUserID) {
		return errForbidden
	}
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[c.Param("id")]
	if !ok {
		return errUserNotFound
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if other := s.findByEmail(email); other != nil && other.ID != u.ID {
			return errUserExists
		}
		u.Email = email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	return message(c, http.StatusOK, "Profile updated successfully", map[string]any{"user": u.User})
}

func (s *Server) changePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "New password is required")
	}

	id, _ := c.Get(ctxUserID).(string)
	s.mu.Lock()
	u, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		return errUserNotFound
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.OldPassword)) != nil {
		return errWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	u.passwordHash = hash
	s.mu.Unlock()
	return message(c, http.StatusOK, "Password changed successfully", nil)
}

func (s *Server) deleteProfile(c echo.Context) error {
	id, _ := c.Get(ctxUserID).(string)
	s.mu.Lock()
	delete(s.users, id)
	s.mu.Unlock()
	s.revoke(c)
	return message(c, http.StatusOK, "Account deleted successfully", nil)
}

func (s *Server) currentUser(c echo.Context) (domain.User, error) {
	id, _ := c.Get(ctxUserID).(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, errUserNotFound
	}
	return u.User, nil
}

func (s *Server) issueToken(userID string) (string, error) {
	now := s.clock()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.opts.TokenTTL).Unix(),
		"jti": uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
}

func (s *Server) revoke(c echo.Context) {
	if tok, ok := c.Get(ctxToken).(string); ok {
		s.mu.Lock()
		s.revoked[tok] = true
		s.mu.Unlock()
	}
}

// findByEmail requires s.mu.
func (s *Server) findByEmail(email string) *user {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}
