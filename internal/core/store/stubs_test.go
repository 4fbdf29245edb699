package store

import (
	"context"
	"sync"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
)

type stubAuthGateway struct {
	registerFn       func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error)
	loginFn          func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
	logoutFn         func(ctx context.Context) (string, error)
	profileFn        func(ctx context.Context) (*domain.User, error)
	updateProfileFn  func(ctx context.Context, userID string, in ports.ProfileInput) (*domain.User, error)
	changePasswordFn func(ctx context.Context, in ports.ChangePasswordInput) (string, error)
	deleteProfileFn  func(ctx context.Context) (string, error)
}

func (s *stubAuthGateway) Register(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthGateway) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthGateway) Logout(ctx context.Context) (string, error) {
	return s.logoutFn(ctx)
}

func (s *stubAuthGateway) Profile(ctx context.Context) (*domain.User, error) {
	return s.profileFn(ctx)
}

func (s *stubAuthGateway) UpdateProfile(ctx context.Context, userID string, in ports.ProfileInput) (*domain.User, error) {
	return s.updateProfileFn(ctx, userID, in)
}

func (s *stubAuthGateway) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) (string, error) {
	return s.changePasswordFn(ctx, in)
}

func (s *stubAuthGateway) DeleteProfile(ctx context.Context) (string, error) {
	return s.deleteProfileFn(ctx)
}

type stubLeadGateway struct {
	listFn   func(ctx context.Context, params query.Values) (*ports.LeadPage, error)
	getFn    func(ctx context.Context, id string) (*domain.Lead, error)
	createFn func(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error)
	updateFn func(ctx context.Context, id string, in ports.UpdateLeadInput) (*domain.Lead, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s *stubLeadGateway) List(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
	return s.listFn(ctx, params)
}

func (s *stubLeadGateway) Get(ctx context.Context, id string) (*domain.Lead, error) {
	return s.getFn(ctx, id)
}

func (s *stubLeadGateway) Create(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
	return s.createFn(ctx, in)
}

func (s *stubLeadGateway) Update(ctx context.Context, id string, in ports.UpdateLeadInput) (*domain.Lead, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubLeadGateway) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// memRepo is an in-memory SessionRepository. corrupt makes Load fail as if the
// stored data could not be decoded.
type memRepo struct {
	mu      sync.Mutex
	session *domain.Session
	corrupt bool
	saveErr error
	clears  int
}

func (r *memRepo) Load(context.Context) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.corrupt {
		return nil, domain.ErrCorruptSession
	}
	if r.session == nil {
		return nil, domain.ErrNoSession
	}
	s := *r.session
	return &s, nil
}

func (r *memRepo) Save(_ context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.session = &s
	return nil
}

func (r *memRepo) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = nil
	r.corrupt = false
	r.clears++
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.Event{}
	}
	return r.events[len(r.events)-1]
}
