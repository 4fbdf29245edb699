package ports

import (
	"context"

	"github.com/leadflow/leadctl/internal/core/domain"
)

// AuthResult is what the backend returns for register and login.
// Token is empty for register and for backends that only set a cookie.
type AuthResult struct {
	User    domain.User
	Token   string
	Message string
}

// AuthGateway is the account half of the backend REST API.
type AuthGateway interface {
	Register(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Logout(ctx context.Context) (string, error)
	Profile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, in ChangePasswordInput) (string, error)
	DeleteProfile(ctx context.Context) (string, error)
}
