package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
)

// LeadState is a deep copy of the lead store's state.
type LeadState struct {
	Leads      []domain.Lead
	Detail     *domain.Lead
	Pagination domain.Pagination
	Query      query.Params
	Loading    bool
	Err        error
}

// DeleteResult reports what a removal did to the current page. PageUnderflow
// is set when the page is now past the last page, or empty while records
// remain elsewhere; the caller decides whether to refetch or step back.
type DeleteResult struct {
	PageUnderflow bool
}

// LeadStore owns one page of leads, the detail record and the list query.
type LeadStore struct {
	leads    ports.LeadGateway
	validate Validator
	events   ports.EventPublisher
	logger   zerolog.Logger

	mu         sync.Mutex
	records    []domain.Lead
	detail     *domain.Lead
	pagination domain.Pagination
	last       query.Params
	pending    inflight
	err        error
	generation uint64
}

func NewLeadStore(leads ports.LeadGateway, v Validator, logger zerolog.Logger, opts ...Option) *LeadStore {
	o := buildOptions(opts)
	return &LeadStore{
		leads:      leads,
		validate:   v,
		events:     o.events,
		logger:     logger,
		records:    []domain.Lead{},
		pagination: domain.DefaultPagination(),
		last:       query.Default(),
		pending:    inflight{},
	}
}

// List fetches one page and replaces the records and pagination wholesale.
// Only the most recent List may write state; an older response is dropped and
// its caller gets domain.ErrStaleResponse. A page past the last one leaves
// state untouched and returns a *domain.PageRangeError.
func (s *LeadStore) List(ctx context.Context, p query.Params) (*ports.LeadPage, error) {
	if err := p.Validate(); err != nil {
		return nil, s.fail(domain.OpListLeads, err)
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	prev := s.last
	s.last = p
	s.err = nil
	s.pending.start(domain.OpListLeads)
	s.mu.Unlock()

	page, err := s.leads.List(ctx, query.Compose(p))

	s.mu.Lock()
	s.pending.done(domain.OpListLeads)
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("discarding superseded list response")
		s.events.Publish(domain.Failed(domain.OpListLeads, domain.ErrStaleResponse))
		return nil, domain.ErrStaleResponse
	}
	if err != nil {
		err = fmt.Errorf("list leads: %w", err)
		s.err = err
		s.mu.Unlock()
		return nil, s.fail(domain.OpListLeads, err)
	}

	pg := normalise(page.Pagination, p)
	if !pg.Contains(pg.Page) {
		err = &domain.PageRangeError{Page: pg.Page, LastPage: pg.LastPage()}
		s.last = prev
		s.err = err
		s.mu.Unlock()
		return nil, s.fail(domain.OpListLeads, err)
	}
	s.records = domain.CloneLeads(page.Leads)
	s.pagination = pg
	out := &ports.LeadPage{Leads: domain.CloneLeads(s.records), Pagination: s.pagination}
	s.mu.Unlock()

	s.logger.Debug().
		Int("page", out.Pagination.Page).
		Int("count", len(out.Leads)).
		Int64("total", out.Pagination.Total).
		Msg("leads listed")
	s.events.Publish(domain.Succeeded(domain.OpListLeads, ""))
	return out, nil
}

// Page re-lists the last query at page n. n must lie in [1, max(totalPages,1)].
func (s *LeadStore) Page(ctx context.Context, n int) (*ports.LeadPage, error) {
	s.mu.Lock()
	pg := s.pagination
	p := s.last.WithPage(n)
	s.mu.Unlock()

	if !pg.Contains(n) {
		return nil, s.fail(domain.OpListLeads, &domain.PageRangeError{Page: n, LastPage: pg.LastPage()})
	}
	return s.List(ctx, p)
}

// Refresh re-lists the last query.
func (s *LeadStore) Refresh(ctx context.Context) (*ports.LeadPage, error) {
	s.mu.Lock()
	p := s.last
	s.mu.Unlock()
	return s.List(ctx, p)
}

// GetOne loads a single lead into the detail copy. A missing lead is reported
// as domain.ErrLeadNotFound.
func (s *LeadStore) GetOne(ctx context.Context, id string) (*domain.Lead, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.fail(domain.OpGetLead, fieldError("id", "id is required"))
	}

	s.mu.Lock()
	s.err = nil
	s.pending.start(domain.OpGetLead)
	s.mu.Unlock()

	lead, err := s.leads.Get(ctx, id)

	s.mu.Lock()
	s.pending.done(domain.OpGetLead)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%w: %s", domain.ErrLeadNotFound, id)
		} else {
			err = fmt.Errorf("get lead %s: %w", id, err)
		}
		s.err = err
		s.mu.Unlock()
		return nil, s.fail(domain.OpGetLead, err)
	}
	detail := lead.Clone()
	s.detail = &detail
	s.mu.Unlock()

	s.events.Publish(domain.Succeeded(domain.OpGetLead, ""))
	out := lead.Clone()
	return &out, nil
}

// Create validates and submits a new lead, then refetches the current page
// with the last query. A refetch failure does not undo the create; it is left
// in the store error state.
func (s *LeadStore) Create(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, s.fail(domain.OpCreateLead, err)
	}

	done := s.track(domain.OpCreateLead)
	lead, err := s.leads.Create(ctx, in)
	done()
	if err != nil {
		return nil, s.fail(domain.OpCreateLead, fmt.Errorf("create lead: %w", err))
	}

	s.logger.Info().Str("lead_id", lead.ID).Msg("lead created")
	s.events.Publish(domain.Succeeded(domain.OpCreateLead, "Lead created successfully"))

	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrStaleResponse) {
		s.logger.Warn().Err(err).Str("lead_id", lead.ID).Msg("refetch after create failed")
	}
	out := lead.Clone()
	return &out, nil
}

// Update applies a partial update. The matching record on the current page and
// the detail copy are replaced; pagination is unchanged.
func (s *LeadStore) Update(ctx context.Context, id string, in ports.UpdateLeadInput) (*domain.Lead, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.fail(domain.OpUpdateLead, fieldError("id", "id is required"))
	}
	if in.Empty() {
		return nil, s.fail(domain.OpUpdateLead, fieldError("lead", "nothing to update"))
	}
	if err := s.validate.Validate(in); err != nil {
		return nil, s.fail(domain.OpUpdateLead, err)
	}

	done := s.track(domain.OpUpdateLead)
	lead, err := s.leads.Update(ctx, id, in)
	done()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%w: %s", domain.ErrLeadNotFound, id)
		}
		return nil, s.fail(domain.OpUpdateLead, fmt.Errorf("update lead: %w", err))
	}
	if lead.ID == "" {
		lead.ID = id
	}

	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == lead.ID {
			s.records[i] = lead.Clone()
			break
		}
	}
	if s.detail != nil && s.detail.ID == lead.ID {
		detail := lead.Clone()
		s.detail = &detail
	}
	s.mu.Unlock()

	s.logger.Info().Str("lead_id", lead.ID).Msg("lead updated")
	s.events.Publish(domain.Succeeded(domain.OpUpdateLead, "Lead updated successfully"))
	out := lead.Clone()
	return &out, nil
}

// Delete removes a lead. The record leaves the current page, total is
// decremented and the detail copy is cleared when it matches.
func (s *LeadStore) Delete(ctx context.Context, id string) (DeleteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DeleteResult{}, s.fail(domain.OpDeleteLead, fieldError("id", "id is required"))
	}

	done := s.track(domain.OpDeleteLead)
	err := s.leads.Delete(ctx, id)
	done()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%w: %s", domain.ErrLeadNotFound, id)
		}
		return DeleteResult{}, s.fail(domain.OpDeleteLead, fmt.Errorf("delete lead: %w", err))
	}

	s.mu.Lock()
	kept := s.records[:0]
	removed := false
	for _, l := range s.records {
		if l.ID == id {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	s.records = kept
	if removed {
		s.pagination = s.pagination.Decrement()
	}
	if s.detail != nil && s.detail.ID == id {
		s.detail = nil
	}
	res := DeleteResult{
		PageUnderflow: s.pagination.Page > s.pagination.LastPage() ||
			(len(s.records) == 0 && s.pagination.Total > 0),
	}
	s.mu.Unlock()

	s.logger.Info().Str("lead_id", id).Bool("page_underflow", res.PageUnderflow).Msg("lead deleted")
	s.events.Publish(domain.Succeeded(domain.OpDeleteLead, "Lead deleted successfully"))
	return res, nil
}

// SetLimit changes the page size for the next list and rewinds to page 1.
func (s *LeadStore) SetLimit(n int) error {
	if n < 1 || n > domain.MaxLimit {
		return fieldError("limit", "limit must be between 1 and "+strconv.Itoa(domain.MaxLimit))
	}
	s.mu.Lock()
	s.last.Limit = n
	s.last.Page = domain.DefaultPage
	s.pagination.Limit = n
	s.mu.Unlock()
	return nil
}

// ClearError drops the recorded error.
func (s *LeadStore) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Reset returns the store to its initial state. Any list still in flight
// becomes stale.
func (s *LeadStore) Reset() {
	s.mu.Lock()
	s.generation++
	s.records = []domain.Lead{}
	s.detail = nil
	s.pagination = domain.DefaultPagination()
	s.last = query.Default()
	s.err = nil
	s.mu.Unlock()
}

// Loading reports whether any lead operation is in flight.
func (s *LeadStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.any()
}

// Snapshot returns a deep copy of the current state.
func (s *LeadStore) Snapshot() LeadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := LeadState{
		Leads:      domain.CloneLeads(s.records),
		Pagination: s.pagination,
		Query:      s.last,
		Loading:    s.pending.any(),
		Err:        s.err,
	}
	if s.detail != nil {
		d := s.detail.Clone()
		st.Detail = &d
	}
	return st
}

func (s *LeadStore) track(op domain.Op) func() {
	s.mu.Lock()
	s.pending.start(op)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.pending.done(op)
		s.mu.Unlock()
	}
}

func (s *LeadStore) fail(op domain.Op, err error) error {
	if !errors.Is(err, domain.ErrValidation) {
		s.logger.Error().Err(err).Str("op", string(op)).Msg("lead operation failed")
	}
	s.events.Publish(domain.Failed(op, err))
	return err
}

// normalise fills gaps in a backend pagination block from the request.
func normalise(pg domain.Pagination, p query.Params) domain.Pagination {
	page := pg.Page
	if page < 1 {
		page = p.Page
	}
	limit := pg.Limit
	if limit < 1 {
		limit = p.Limit
	}
	out := domain.NewPagination(page, limit, pg.Total)
	if pg.TotalPages > 0 && pg.Total == 0 {
		out.TotalPages = pg.TotalPages
	}
	return out
}
