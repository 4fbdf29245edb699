package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
)

var (
	errMissingToken = errors.New("login response carried no token")
	errMissingUser  = errors.New("login response carried no user id")
)

// DeleteAccountResult tells the caller to leave any account view.
type DeleteAccountResult struct {
	NavigateAway bool
	Message      string
}

// SessionStore owns the authenticated-user context and keeps it persisted.
type SessionStore struct {
	auth     ports.AuthGateway
	repo     ports.SessionRepository
	validate Validator
	events   ports.EventPublisher
	now      func() time.Time
	logger   zerolog.Logger

	mu        sync.RWMutex
	session   domain.Session
	pending   inflight
	signedOut []func()
}

func NewSessionStore(auth ports.AuthGateway, repo ports.SessionRepository, v Validator, logger zerolog.Logger, opts ...Option) *SessionStore {
	o := buildOptions(opts)
	return &SessionStore{
		auth:     auth,
		repo:     repo,
		validate: v,
		events:   o.events,
		now:      o.now,
		logger:   logger,
		pending:  inflight{},
	}
}

// OnSignedOut registers fn to run after logout or account deletion clears the session.
func (s *SessionStore) OnSignedOut(fn func()) {
	s.mu.Lock()
	s.signedOut = append(s.signedOut, fn)
	s.mu.Unlock()
}

// Current returns a copy of the session.
func (s *SessionStore) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Loading reports whether any session operation is in flight.
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.any()
}

// Token reads the bearer token through the persisted session. It returns ""
// when nothing usable is stored.
func (s *SessionStore) Token(ctx context.Context) string {
	sess, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoSession) {
			s.logger.Warn().Err(err).Msg("token read-through failed")
		}
		return ""
	}
	if !sess.Authenticated {
		return ""
	}
	return sess.Token
}

// Restore loads the persisted session at startup. Missing, corrupt or
// expired data leaves the store logged out; corrupt and expired data is also
// removed from storage.
func (s *SessionStore) Restore(ctx context.Context) domain.Session {
	sess, err := s.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoSession):
		return s.Current()
	case errors.Is(err, domain.ErrCorruptSession):
		s.logger.Warn().Err(err).Msg("discarding corrupt persisted session")
		s.clearPersisted(ctx)
		return s.Current()
	default:
		s.logger.Error().Err(err).Msg("failed to load persisted session")
		return s.Current()
	}

	if !sess.Authenticated || !sess.Valid() {
		s.logger.Info().Msg("persisted session is not authenticated")
		s.clearPersisted(ctx)
		return s.Current()
	}
	if s.expired(sess.Token) {
		s.logger.Info().Str("user_id", sess.User.ID).Msg("persisted session expired")
		s.clearPersisted(ctx)
		return s.Current()
	}

	s.mu.Lock()
	s.session = *sess
	s.mu.Unlock()
	s.logger.Debug().Str("user_id", sess.User.ID).Msg("session restored")
	return *sess
}

// Signup registers a new account. It does not log the user in.
func (s *SessionStore) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, s.fail(domain.OpSignup, err)
	}

	defer s.track(domain.OpSignup)()
	res, err := s.auth.Register(ctx, in)
	if err != nil {
		return nil, s.fail(domain.OpSignup, fmt.Errorf("signup: %w", err))
	}

	s.logger.Info().Str("email", in.Email).Msg("account created")
	s.succeed(domain.OpSignup, res.Message, "Account created successfully!")
	user := res.User
	return &user, nil
}

// Login authenticates and persists the session. On failure the prior state is kept.
func (s *SessionStore) Login(ctx context.Context, in ports.LoginInput) (domain.Session, error) {
	if err := s.validate.Validate(in); err != nil {
		return domain.Session{}, s.fail(domain.OpLogin, err)
	}

	defer s.track(domain.OpLogin)()
	res, err := s.auth.Login(ctx, in)
	if err != nil {
		return domain.Session{}, s.fail(domain.OpLogin, fmt.Errorf("login: %w", err))
	}
	if res.Token == "" {
		return domain.Session{}, s.fail(domain.OpLogin, errMissingToken)
	}

	sess := domain.NewSession(res.User, res.Token)
	if !sess.Authenticated {
		return domain.Session{}, s.fail(domain.OpLogin, errMissingUser)
	}
	if err := s.commit(ctx, sess); err != nil {
		return domain.Session{}, s.fail(domain.OpLogin, err)
	}

	s.logger.Info().Str("user_id", sess.User.ID).Msg("logged in")
	s.succeed(domain.OpLogin, res.Message, "Login successful!")
	return sess, nil
}

// Logout asks the backend to end the session, then clears local and persisted
// state whatever the backend answered. A backend failure is still returned.
func (s *SessionStore) Logout(ctx context.Context) error {
	defer s.track(domain.OpLogout)()

	msg, err := s.auth.Logout(ctx)
	s.signOut(ctx)

	if err != nil {
		return s.fail(domain.OpLogout, fmt.Errorf("logout: %w", err))
	}
	s.logger.Info().Msg("logged out")
	s.succeed(domain.OpLogout, msg, "Logout successful!")
	return nil
}

// FetchProfile refreshes the user from the backend, keeping the token.
func (s *SessionStore) FetchProfile(ctx context.Context) (domain.Session, error) {
	cur, err := s.requireAuth()
	if err != nil {
		return domain.Session{}, s.fail(domain.OpFetchProfile, err)
	}

	defer s.track(domain.OpFetchProfile)()
	user, err := s.auth.Profile(ctx)
	if err != nil {
		return domain.Session{}, s.fail(domain.OpFetchProfile, fmt.Errorf("fetch profile: %w", err))
	}

	sess := domain.NewSession(cur.User.Merge(*user), cur.Token)
	if err := s.commit(ctx, sess); err != nil {
		return domain.Session{}, s.fail(domain.OpFetchProfile, err)
	}
	s.succeed(domain.OpFetchProfile, "", "")
	return sess, nil
}

// UpdateProfile applies a partial profile update and merges the result.
// The authentication flag is unchanged.
func (s *SessionStore) UpdateProfile(ctx context.Context, in ports.ProfileInput) (domain.Session, error) {
	cur, err := s.requireAuth()
	if err != nil {
		return domain.Session{}, s.fail(domain.OpUpdateProfile, err)
	}
	if in.Empty() {
		return domain.Session{}, s.fail(domain.OpUpdateProfile, fieldError("profile", "nothing to update"))
	}
	if err := s.validate.Validate(in); err != nil {
		return domain.Session{}, s.fail(domain.OpUpdateProfile, err)
	}

	defer s.track(domain.OpUpdateProfile)()
	user, err := s.auth.UpdateProfile(ctx, cur.User.ID, in)
	if err != nil {
		return domain.Session{}, s.fail(domain.OpUpdateProfile, fmt.Errorf("update profile: %w", err))
	}

	patch := *user
	patch.ID = ""
	sess := cur
	sess.User = cur.User.Merge(patch)
	if err := s.commit(ctx, sess); err != nil {
		return domain.Session{}, s.fail(domain.OpUpdateProfile, err)
	}

	s.logger.Info().Str("user_id", sess.User.ID).Msg("profile updated")
	s.succeed(domain.OpUpdateProfile, "", "Profile updated successfully!")
	return sess, nil
}

// ChangePassword rotates the password. The session is unchanged.
func (s *SessionStore) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	if _, err := s.requireAuth(); err != nil {
		return s.fail(domain.OpChangePassword, err)
	}
	if err := s.validate.Validate(in); err != nil {
		return s.fail(domain.OpChangePassword, err)
	}

	defer s.track(domain.OpChangePassword)()
	msg, err := s.auth.ChangePassword(ctx, in)
	if err != nil {
		return s.fail(domain.OpChangePassword, fmt.Errorf("change password: %w", err))
	}
	s.succeed(domain.OpChangePassword, msg, "Password changed successfully!")
	return nil
}

// DeleteAccount deletes the account and, on success, signs out like Logout.
func (s *SessionStore) DeleteAccount(ctx context.Context) (DeleteAccountResult, error) {
	cur, err := s.requireAuth()
	if err != nil {
		return DeleteAccountResult{}, s.fail(domain.OpDeleteAccount, err)
	}

	defer s.track(domain.OpDeleteAccount)()
	msg, err := s.auth.DeleteProfile(ctx)
	if err != nil {
		return DeleteAccountResult{}, s.fail(domain.OpDeleteAccount, fmt.Errorf("delete account: %w", err))
	}

	s.signOut(ctx)
	s.logger.Info().Str("user_id", cur.User.ID).Msg("account deleted")
	if msg == "" {
		msg = "Account deleted successfully"
	}
	s.succeed(domain.OpDeleteAccount, msg, "")
	return DeleteAccountResult{NavigateAway: true, Message: msg}, nil
}

func (s *SessionStore) requireAuth() (domain.Session, error) {
	cur := s.Current()
	if !cur.Authenticated {
		return cur, domain.ErrNotAuthenticated
	}
	return cur, nil
}

// commit persists sess before it becomes the in-memory session.
func (s *SessionStore) commit(ctx context.Context, sess domain.Session) error {
	if err := s.repo.Save(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) signOut(ctx context.Context) {
	s.mu.Lock()
	s.session = domain.Session{}
	hooks := append([]func(){}, s.signedOut...)
	s.mu.Unlock()

	s.clearPersisted(ctx)
	for _, fn := range hooks {
		fn()
	}
}

func (s *SessionStore) clearPersisted(ctx context.Context) {
	if err := s.repo.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear persisted session")
	}
}

// expired reports whether token is a JWT whose exp claim has passed. Opaque
// tokens never expire client-side.
func (s *SessionStore) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now())
}

func (s *SessionStore) track(op domain.Op) func() {
	s.mu.Lock()
	s.pending.start(op)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.pending.done(op)
		s.mu.Unlock()
	}
}

func (s *SessionStore) fail(op domain.Op, err error) error {
	if !errors.Is(err, domain.ErrValidation) {
		s.logger.Error().Err(err).Str("op", string(op)).Msg("session operation failed")
	}
	s.events.Publish(domain.Failed(op, err))
	return err
}

func (s *SessionStore) succeed(op domain.Op, msg, fallback string) {
	if msg == "" {
		msg = fallback
	}
	s.events.Publish(domain.Succeeded(op, msg))
}
