package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
	"github.com/leadflow/leadctl/internal/core/validation"
)

func newLeadStore(gw ports.LeadGateway, rec *recorder) *LeadStore {
	return NewLeadStore(gw, validation.New(), zerolog.Nop(), WithPublisher(rec))
}

func makeLeads(n int) []domain.Lead {
	out := make([]domain.Lead, n)
	for i := range out {
		out[i] = domain.Lead{ID: fmt.Sprintf("l%d", i+1), FirstName: "Lead", Status: domain.StatusNew, Source: domain.SourceWebsite}
	}
	return out
}

func pageOf(leads []domain.Lead, page, limit int, total int64) *ports.LeadPage {
	return &ports.LeadPage{Leads: leads, Pagination: domain.NewPagination(page, limit, total)}
}

func validCreate() ports.CreateLeadInput {
	return ports.CreateLeadInput{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Phone: "+15551234567",
		Company: "Navy", City: "Arlington", State: "VA",
		Source: domain.SourceReferral, Status: domain.StatusNew, Score: 80, LeadValue: 5000,
	}
}

func TestLeadStore_List_ReplacesState(t *testing.T) {
	var got query.Values
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			got = params
			return pageOf(makeLeads(2), 2, 2, 5), nil
		},
	}
	s := newLeadStore(gw, &recorder{})

	p := query.Default().WithPage(2)
	p.Limit = 2
	p.Filters.Status = "Qualified"
	if _, err := s.List(context.Background(), p); err != nil {
		t.Fatalf("list: %v", err)
	}

	if got.Encode() != "page=2&limit=2&status=qualified&sort_by=created_at&sort_order=desc" {
		t.Fatalf("unexpected query: %s", got.Encode())
	}
	st := s.Snapshot()
	if diff := cmp.Diff(makeLeads(2), st.Leads); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	want := domain.Pagination{Page: 2, Limit: 2, Total: 5, TotalPages: 3}
	if st.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, st.Pagination)
	}
	if st.Loading || st.Err != nil {
		t.Fatalf("unexpected flags: loading=%v err=%v", st.Loading, st.Err)
	}
}

func TestLeadStore_List_EmptyIsNotError(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return &ports.LeadPage{Pagination: domain.NewPagination(1, 20, 0)}, nil
		},
	}
	s := newLeadStore(gw, &recorder{})

	page, err := s.List(context.Background(), query.Default())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Leads == nil || len(page.Leads) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", page.Leads)
	}
}

func TestLeadStore_List_FailureRecordsError(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return nil, &domain.APIError{Status: 500, Message: "boom"}
		},
	}
	rec := &recorder{}
	s := newLeadStore(gw, rec)

	_, err := s.List(context.Background(), query.Default())
	if err == nil {
		t.Fatalf("expected error")
	}
	if s.Snapshot().Err == nil {
		t.Fatalf("error state not recorded")
	}
	if e := rec.last(); e.Failure != domain.FailureServer || e.Message != "boom" {
		t.Fatalf("unexpected event: %+v", e)
	}

	s.ClearError()
	if s.Snapshot().Err != nil {
		t.Fatalf("ClearError did not clear")
	}
}

func TestLeadStore_List_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			if v, _ := params.Get("page"); v == "1" {
				close(entered)
				<-release
				return pageOf(makeLeads(3), 1, 20, 3), nil
			}
			return pageOf([]domain.Lead{{ID: "p2"}}, 2, 20, 21), nil
		},
	}
	s := newLeadStore(gw, &recorder{})

	errc := make(chan error, 1)
	go func() {
		_, err := s.List(context.Background(), query.Default())
		errc <- err
	}()
	<-entered

	if !s.Loading() {
		t.Fatalf("expected loading while the first list is in flight")
	}
	if _, err := s.List(context.Background(), query.Default().WithPage(2)); err != nil {
		t.Fatalf("second list: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, domain.ErrStaleResponse) {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	st := s.Snapshot()
	if len(st.Leads) != 1 || st.Leads[0].ID != "p2" || st.Pagination.Page != 2 {
		t.Fatalf("stale response overwrote state: %+v", st)
	}
}

func TestLeadStore_GetOne_NotFound(t *testing.T) {
	gw := &stubLeadGateway{
		getFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return nil, &domain.APIError{Status: 404, Message: "Lead not found"}
		},
	}
	rec := &recorder{}
	s := newLeadStore(gw, rec)

	_, err := s.GetOne(context.Background(), "missing")
	if !errors.Is(err, domain.ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("not-found must be distinct from network failure")
	}
	if rec.last().Failure != domain.FailureNotFound {
		t.Fatalf("unexpected failure kind: %+v", rec.last())
	}
	if s.Snapshot().Detail != nil {
		t.Fatalf("detail must stay empty")
	}
}

func TestLeadStore_GetOne_DetailIsACopy(t *testing.T) {
	gw := &stubLeadGateway{
		getFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{ID: id, Company: "Acme"}, nil
		},
	}
	s := newLeadStore(gw, &recorder{})

	lead, err := s.GetOne(context.Background(), "l1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	lead.Company = "Changed"
	if s.Snapshot().Detail.Company != "Acme" {
		t.Fatalf("detail aliased caller copy")
	}
}

func TestLeadStore_Create_RejectsInvalidScoreWithoutNetwork(t *testing.T) {
	gw := &stubLeadGateway{
		createFn: func(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
			t.Fatalf("backend must not be called")
			return nil, nil
		},
	}
	s := newLeadStore(gw, &recorder{})

	in := validCreate()
	in.Score = 150
	_, err := s.Create(context.Background(), in)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := ve.Fields["score"]; !ok {
		t.Fatalf("expected score field error, got %v", ve.Fields)
	}
}

func TestLeadStore_Create_RefetchesLastQuery(t *testing.T) {
	var lists atomic.Int32
	var lastQuery string
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			lists.Add(1)
			lastQuery = params.Encode()
			return pageOf(makeLeads(3), 1, 20, 3), nil
		},
		createFn: func(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
			return &domain.Lead{ID: "new", FirstName: in.FirstName}, nil
		},
	}
	rec := &recorder{}
	s := newLeadStore(gw, rec)

	p := query.Default()
	p.Search = "acme"
	if _, err := s.List(context.Background(), p); err != nil {
		t.Fatalf("list: %v", err)
	}

	lead, err := s.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.ID != "new" {
		t.Fatalf("unexpected lead: %+v", lead)
	}
	if lists.Load() != 2 {
		t.Fatalf("expected a refetch, got %d list calls", lists.Load())
	}
	if lastQuery != "page=1&limit=20&search=acme&sort_by=created_at&sort_order=desc" {
		t.Fatalf("refetch used wrong query: %s", lastQuery)
	}
}

func TestLeadStore_Create_RefetchFailureKeepsCreate(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return nil, domain.ErrNetwork
		},
		createFn: func(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
			return &domain.Lead{ID: "new"}, nil
		},
	}
	s := newLeadStore(gw, &recorder{})

	if _, err := s.Create(context.Background(), validCreate()); err != nil {
		t.Fatalf("create should succeed, got %v", err)
	}
	if !errors.Is(s.Snapshot().Err, domain.ErrNetwork) {
		t.Fatalf("refetch failure should land in error state, got %v", s.Snapshot().Err)
	}
}

func TestLeadStore_Update_ReplacesRecordAndDetail(t *testing.T) {
	leads := makeLeads(3)
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return pageOf(leads, 1, 20, 3), nil
		},
		getFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			l := leads[1]
			return &l, nil
		},
		updateFn: func(ctx context.Context, id string, in ports.UpdateLeadInput) (*domain.Lead, error) {
			l := in.Apply(leads[1])
			return &l, nil
		},
	}
	s := newLeadStore(gw, &recorder{})
	ctx := context.Background()
	if _, err := s.List(ctx, query.Default()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := s.GetOne(ctx, "l2"); err != nil {
		t.Fatalf("get: %v", err)
	}
	before := s.Snapshot().Pagination

	status := domain.StatusWon
	if _, err := s.Update(ctx, "l2", ports.UpdateLeadInput{Status: &status}); err != nil {
		t.Fatalf("update: %v", err)
	}

	st := s.Snapshot()
	if st.Leads[1].Status != domain.StatusWon {
		t.Fatalf("record not replaced: %+v", st.Leads[1])
	}
	if st.Detail == nil || st.Detail.Status != domain.StatusWon {
		t.Fatalf("detail not replaced: %+v", st.Detail)
	}
	if st.Pagination != before {
		t.Fatalf("pagination changed: %+v -> %+v", before, st.Pagination)
	}
}

func TestLeadStore_Update_EmptyRejected(t *testing.T) {
	s := newLeadStore(&stubLeadGateway{}, &recorder{})
	if _, err := s.Update(context.Background(), "l1", ports.UpdateLeadInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLeadStore_Delete_LastItemOnLastPage(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return pageOf([]domain.Lead{{ID: "l21"}}, 2, 20, 21), nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	s := newLeadStore(gw, &recorder{})
	ctx := context.Background()
	if _, err := s.List(ctx, query.Default().WithPage(2)); err != nil {
		t.Fatalf("list: %v", err)
	}

	res, err := s.Delete(ctx, "l21")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !res.PageUnderflow {
		t.Fatalf("expected page underflow")
	}
	st := s.Snapshot()
	if st.Pagination.Total != 20 || st.Pagination.TotalPages != 1 {
		t.Fatalf("unexpected pagination: %+v", st.Pagination)
	}
	if len(st.Leads) != 0 {
		t.Fatalf("record not removed")
	}
}

func TestLeadStore_Delete_ClearsDetail(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return pageOf(makeLeads(3), 1, 20, 3), nil
		},
		getFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{ID: id}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	s := newLeadStore(gw, &recorder{})
	ctx := context.Background()
	_, _ = s.List(ctx, query.Default())
	_, _ = s.GetOne(ctx, "l1")

	res, err := s.Delete(ctx, "l1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.PageUnderflow {
		t.Fatalf("unexpected underflow")
	}
	st := s.Snapshot()
	if st.Detail != nil {
		t.Fatalf("detail should be cleared")
	}
	if len(st.Leads) != 2 || st.Pagination.Total != 2 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLeadStore_Delete_FailureKeepsState(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			return pageOf(makeLeads(2), 1, 20, 2), nil
		},
		deleteFn: func(ctx context.Context, id string) error { return domain.ErrNetwork },
	}
	s := newLeadStore(gw, &recorder{})
	_, _ = s.List(context.Background(), query.Default())

	if _, err := s.Delete(context.Background(), "l1"); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(s.Snapshot().Leads) != 2 {
		t.Fatalf("records changed on failure")
	}
}

func TestLeadStore_Page_Bounds(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			v, _ := params.Get("page")
			page, _ := strconv.Atoi(v)
			return pageOf(makeLeads(1), page, 20, 45), nil
		},
	}
	s := newLeadStore(gw, &recorder{})
	ctx := context.Background()
	if _, err := s.List(ctx, query.Default()); err != nil {
		t.Fatalf("list: %v", err)
	}

	if _, err := s.Page(ctx, 4); !errors.Is(err, domain.ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, err := s.Page(ctx, 0); !errors.Is(err, domain.ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	page, err := s.Page(ctx, 3)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if page.Pagination.Page != 3 || s.Snapshot().Query.Page != 3 {
		t.Fatalf("unexpected page state: %+v", page.Pagination)
	}
}

func TestLeadStore_List_PastLastPageKeepsState(t *testing.T) {
	gw := &stubLeadGateway{
		listFn: func(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
			v, _ := params.Get("page")
			page, _ := strconv.Atoi(v)
			return pageOf(nil, page, 2, 5), nil
		},
	}
	rec := &recorder{}
	s := newLeadStore(gw, rec)
	ctx := context.Background()

	first := query.Default()
	first.Limit = 2
	if _, err := s.List(ctx, first); err != nil {
		t.Fatalf("list: %v", err)
	}
	before := s.Snapshot()

	_, err := s.List(ctx, first.WithPage(9))
	var rangeErr *domain.PageRangeError
	if !errors.As(err, &rangeErr) || !errors.Is(err, domain.ErrPageOutOfRange) {
		t.Fatalf("expected PageRangeError, got %v", err)
	}
	if rangeErr.Page != 9 || rangeErr.LastPage != 3 {
		t.Fatalf("unexpected range error: %+v", rangeErr)
	}

	after := s.Snapshot()
	if after.Pagination != before.Pagination {
		t.Fatalf("pagination changed: %+v -> %+v", before.Pagination, after.Pagination)
	}
	if !after.Pagination.Contains(after.Pagination.Page) {
		t.Fatalf("page %d outside [1, %d]", after.Pagination.Page, after.Pagination.LastPage())
	}
	if after.Query.Page != 1 {
		t.Fatalf("last query should stay on page 1, got %d", after.Query.Page)
	}
	if after.Err == nil {
		t.Fatalf("error state not recorded")
	}
	if e := rec.last(); e.Outcome != domain.OutcomeFailure {
		t.Fatalf("expected failure event, got %+v", e)
	}

	page, err := s.List(ctx, first.WithPage(rangeErr.LastPage))
	if err != nil {
		t.Fatalf("step back: %v", err)
	}
	if page.Pagination.Page != 3 {
		t.Fatalf("expected page 3, got %d", page.Pagination.Page)
	}
}

func TestLeadStore_SetLimitAndReset(t *testing.T) {
	s := newLeadStore(&stubLeadGateway{}, &recorder{})

	if err := s.SetLimit(0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.SetLimit(50); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	if st := s.Snapshot(); st.Query.Limit != 50 || st.Pagination.Limit != 50 {
		t.Fatalf("limit not applied: %+v", st)
	}

	s.Reset()
	st := s.Snapshot()
	if st.Query != query.Default() || st.Pagination != domain.DefaultPagination() || len(st.Leads) != 0 {
		t.Fatalf("reset incomplete: %+v", st)
	}
}
