package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
	"github.com/leadflow/leadctl/internal/core/validation"
	"github.com/leadflow/leadctl/internal/fakebackend"
	"github.com/leadflow/leadctl/internal/infrastructure/api"
)

// backendLeadStore returns a LeadStore talking HTTP to a seeded fake backend.
func backendLeadStore(t *testing.T, seeded int) *LeadStore {
	t.Helper()
	backend, srv := fakebackend.Start(fakebackend.Options{})
	t.Cleanup(srv.Close)

	leads := make([]domain.Lead, seeded)
	for i := range leads {
		leads[i] = domain.Lead{
			FirstName: fmt.Sprintf("Lead%02d", i),
			LastName:  "Example",
			Email:     fmt.Sprintf("lead%02d@example.com", i),
			Status:    domain.LeadStatuses[i%len(domain.LeadStatuses)],
			Source:    domain.LeadSources[i%len(domain.LeadSources)],
			Score:     i * 7 % 100,
		}
	}
	backend.Seed(leads...)

	var token string
	client, err := api.NewClient(api.Config{BaseURL: fakebackend.BaseURL(srv.URL)},
		api.TokenSourceFunc(func(context.Context) string { return token }), zerolog.Nop())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	auth := api.NewAuthGateway(client)
	ctx := context.Background()
	if _, err := auth.Register(ctx, ports.SignupInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "Secret123",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := auth.Login(ctx, ports.LoginInput{Email: "ada@example.com", Password: "Secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	token = res.Token

	return NewLeadStore(api.NewLeadGateway(client), validation.New(), zerolog.Nop())
}

func TestLeadStore_Backend_SameQueryIsIdempotent(t *testing.T) {
	s := backendLeadStore(t, 12)
	ctx := context.Background()

	p := query.Default().WithPage(2)
	p.Limit = 5
	p.Sort = query.Sort{Field: "score", Order: query.Asc}

	if _, err := s.List(ctx, p); err != nil {
		t.Fatalf("first list: %v", err)
	}
	first := s.Snapshot()
	if _, err := s.List(ctx, p); err != nil {
		t.Fatalf("second list: %v", err)
	}
	second := s.Snapshot()

	if diff := cmp.Diff(first.Leads, second.Leads); diff != "" {
		t.Fatalf("records differ between identical lists (-first +second):\n%s", diff)
	}
	if first.Pagination != second.Pagination {
		t.Fatalf("pagination differs: %+v vs %+v", first.Pagination, second.Pagination)
	}
	want := domain.Pagination{Page: 2, Limit: 5, Total: 12, TotalPages: 3}
	if second.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, second.Pagination)
	}
}

func TestLeadStore_Backend_RecordsNeverExceedLimit(t *testing.T) {
	s := backendLeadStore(t, 12)
	ctx := context.Background()

	tests := []struct {
		page, limit, want int
	}{
		{1, 5, 5},
		{3, 5, 2},
		{1, 20, 12},
		{4, 3, 3},
		{12, 1, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%d/limit=%d", tt.page, tt.limit), func(t *testing.T) {
			p := query.Default().WithPage(tt.page)
			p.Limit = tt.limit
			page, err := s.List(ctx, p)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(page.Leads) > tt.limit || len(page.Leads) != tt.want {
				t.Fatalf("expected %d records (limit %d), got %d", tt.want, tt.limit, len(page.Leads))
			}
			if pg := page.Pagination; !pg.Contains(pg.Page) {
				t.Fatalf("page %d outside [1, %d]", pg.Page, pg.LastPage())
			}
		})
	}
}

func TestLeadStore_Backend_PastLastPage(t *testing.T) {
	s := backendLeadStore(t, 12)

	p := query.Default().WithPage(9)
	p.Limit = 5
	_, err := s.List(context.Background(), p)
	var rangeErr *domain.PageRangeError
	if !errors.As(err, &rangeErr) || rangeErr.LastPage != 3 {
		t.Fatalf("expected PageRangeError with last page 3, got %v", err)
	}
}
