package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
)

// tokenNames are the body fields and cookie names a login token may arrive
// under, in order of preference. Cookie-only backends set one of them as a
// cookie instead of returning it in the body.
var tokenNames = []string{"token", "accessToken"}

// AuthGateway implements ports.AuthGateway over the users/* endpoints.
type AuthGateway struct {
	c *Client
}

func NewAuthGateway(c *Client) *AuthGateway {
	return &AuthGateway{c: c}
}

var _ ports.AuthGateway = (*AuthGateway)(nil)

func (g *AuthGateway) Register(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	resp, err := g.c.do(ctx, route{http.MethodPost, "users/register", "users/register"}, nil, in)
	if err != nil {
		return nil, err
	}
	res := &ports.AuthResult{Message: serverMessage(resp.body)}
	if u := gjson.GetBytes(resp.body, "user"); u.IsObject() {
		if err := decode([]byte(u.Raw), &res.User, "registered user"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (g *AuthGateway) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	resp, err := g.c.do(ctx, route{http.MethodPost, "users/login", "users/login"}, nil, in)
	if err != nil {
		return nil, err
	}

	res := &ports.AuthResult{Message: serverMessage(resp.body)}
	if err := decode(unwrap(resp.body, "user", "data.user", "data"), &res.User, "login user"); err != nil {
		return nil, err
	}
	paths := make([]string, 0, 2*len(tokenNames))
	for _, name := range tokenNames {
		paths = append(paths, name, "data."+name)
	}
	res.Token = firstString(resp.body, paths...)
	if res.Token == "" {
		res.Token = cookieToken(resp.cookies)
	}
	return res, nil
}

func (g *AuthGateway) Logout(ctx context.Context) (string, error) {
	resp, err := g.c.do(ctx, route{http.MethodPost, "users/logout", "users/logout"}, nil, nil)
	if err != nil {
		return "", err
	}
	return serverMessage(resp.body), nil
}

func (g *AuthGateway) Profile(ctx context.Context) (*domain.User, error) {
	resp, err := g.c.do(ctx, route{http.MethodGet, "users/profile", "users/profile"}, nil, nil)
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := decode(unwrap(resp.body, "user", "data.user", "data"), &u, "profile"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *AuthGateway) UpdateProfile(ctx context.Context, userID string, in ports.ProfileInput) (*domain.User, error) {
	rt := route{http.MethodPut, "users/update-profile/:id", "users/update-profile/" + url.PathEscape(userID)}
	resp, err := g.c.do(ctx, rt, nil, in)
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := decode(unwrap(resp.body, "user", "data.user", "data"), &u, "updated profile"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *AuthGateway) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) (string, error) {
	resp, err := g.c.do(ctx, route{http.MethodPost, "users/change-password", "users/change-password"}, nil, in)
	if err != nil {
		return "", err
	}
	return serverMessage(resp.body), nil
}

func (g *AuthGateway) DeleteProfile(ctx context.Context) (string, error) {
	resp, err := g.c.do(ctx, route{http.MethodDelete, "users/delete-profile", "users/delete-profile"}, nil, nil)
	if err != nil {
		return "", err
	}
	return serverMessage(resp.body), nil
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func cookieToken(cookies []*http.Cookie) string {
	for _, name := range tokenNames {
		for _, ck := range cookies {
			if ck.Name == name && ck.Value != "" {
				return ck.Value
			}
		}
	}
	return ""
}
