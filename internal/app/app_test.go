package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
	"github.com/leadflow/leadctl/internal/fakebackend"
	"github.com/leadflow/leadctl/internal/infrastructure/config"
	"github.com/leadflow/leadctl/internal/infrastructure/persist"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		PageLimit: 20,
		API:       config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second, RateBurst: 1},
		Storage:   config.StorageConfig{Backend: config.BackendMemory},
	}
}

func newApp(t *testing.T, baseURL string, kv ports.KeyValueStore, out *bytes.Buffer) *App {
	t.Helper()
	opts := Options{KV: kv}
	if out != nil {
		opts.Notifications = out
	}
	a, err := New(context.Background(), testConfig(baseURL), zerolog.Nop(), opts)
	require.NoError(t, err)
	return a
}

func signupAndLogin(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()
	_, err := a.Sessions.Signup(ctx, ports.SignupInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "Secret123",
	})
	require.NoError(t, err)
	_, err = a.Sessions.Login(ctx, ports.LoginInput{Email: "ada@example.com", Password: "Secret123"})
	require.NoError(t, err)
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	_, srv := fakebackend.Start(fakebackend.Options{})
	defer srv.Close()
	base := fakebackend.BaseURL(srv.URL)
	kv := persist.NewMemoryKV()

	first := newApp(t, base, kv, nil)
	signupAndLogin(t, first)
	require.NoError(t, first.Close())

	second := newApp(t, base, kv, nil)
	defer second.Close()

	sess := second.Sessions.Current()
	assert.True(t, sess.Authenticated)
	assert.Equal(t, "ada@example.com", sess.User.Email)

	_, err := second.Sessions.FetchProfile(context.Background())
	assert.NoError(t, err)
}

func TestApp_LogoutResetsLeads(t *testing.T) {
	backend, srv := fakebackend.Start(fakebackend.Options{})
	defer srv.Close()
	backend.Seed(
		domain.Lead{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Status: domain.StatusNew, Source: domain.SourceWebsite},
		domain.Lead{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Status: domain.StatusWon, Source: domain.SourceReferral},
	)

	a := newApp(t, fakebackend.BaseURL(srv.URL), persist.NewMemoryKV(), nil)
	defer a.Close()
	signupAndLogin(t, a)

	ctx := context.Background()
	page, err := a.Leads.List(ctx, query.Default())
	require.NoError(t, err)
	assert.Len(t, page.Leads, 2)

	require.NoError(t, a.Sessions.Logout(ctx))
	st := a.Leads.Snapshot()
	assert.Empty(t, st.Leads)
	assert.Equal(t, domain.DefaultPagination().Page, st.Pagination.Page)

	_, err = a.Leads.List(ctx, query.Default())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestApp_NotificationsReachToaster(t *testing.T) {
	_, srv := fakebackend.Start(fakebackend.Options{})
	defer srv.Close()

	var out bytes.Buffer
	a := newApp(t, fakebackend.BaseURL(srv.URL), persist.NewMemoryKV(), &out)
	signupAndLogin(t, a)
	// Close drains the dispatcher before returning.
	require.NoError(t, a.Close())

	assert.Contains(t, out.String(), "User registered successfully")
	assert.Contains(t, out.String(), "Login successful")
}

func TestApp_Check(t *testing.T) {
	_, srv := fakebackend.Start(fakebackend.Options{})
	a := newApp(t, fakebackend.BaseURL(srv.URL), persist.NewMemoryKV(), nil)
	defer a.Close()

	r := a.Check(context.Background())
	assert.True(t, r.Healthy())
	assert.Equal(t, "ok", r.Dependencies["storage"].Status)
	assert.Equal(t, "ok", r.Dependencies["backend"].Status)

	srv.Close()
	r = a.Check(context.Background())
	assert.False(t, r.Healthy())
	assert.Equal(t, "degraded", r.Status)
	assert.Equal(t, "ok", r.Dependencies["storage"].Status)
	assert.Equal(t, "unhealthy", r.Dependencies["backend"].Status)
	assert.NotEmpty(t, r.Dependencies["backend"].Error)
}

func TestOpenKV(t *testing.T) {
	ctx := context.Background()

	kv, err := OpenKV(ctx, &config.Config{Storage: config.StorageConfig{Backend: config.BackendMemory}})
	require.NoError(t, err)
	assert.IsType(t, &persist.MemoryKV{}, kv)

	cfg := &config.Config{Storage: config.StorageConfig{
		Backend:   config.BackendSQLite,
		StatePath: t.TempDir() + "/state.db",
	}}
	kv, err = OpenKV(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", "v"))
	require.NoError(t, kv.Close())

	_, err = OpenKV(ctx, &config.Config{Storage: config.StorageConfig{Backend: "etcd"}})
	assert.ErrorContains(t, err, "unknown storage backend")
}
