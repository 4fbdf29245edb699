package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
)

const (
	leadsPath     = "leads/leads"
	leadsEndpoint = "leads/leads"
	leadEndpoint  = "leads/leads/:id"
)

// LeadGateway implements ports.LeadGateway over the leads/leads endpoints.
type LeadGateway struct {
	c *Client
}

func NewLeadGateway(c *Client) *LeadGateway {
	return &LeadGateway{c: c}
}

var _ ports.LeadGateway = (*LeadGateway)(nil)

// listEnvelope is the list response: {data, page, limit, total, totalPages}.
type listEnvelope struct {
	Data []domain.Lead `json:"data"`
	domain.Pagination
}

func (g *LeadGateway) List(ctx context.Context, params query.Values) (*ports.LeadPage, error) {
	resp, err := g.c.do(ctx, route{http.MethodGet, leadsEndpoint, leadsPath}, params, nil)
	if err != nil {
		return nil, err
	}

	if data := gjson.GetBytes(resp.body, "data"); !data.IsArray() && data.Type != gjson.Null {
		return nil, errUnexpected(leadsEndpoint, resp.status)
	}
	var env listEnvelope
	if err := decode(resp.body, &env, "lead list"); err != nil {
		return nil, err
	}
	// some deployments nest the counters under "pagination"
	if p := gjson.GetBytes(resp.body, "pagination"); p.IsObject() {
		if err := decode([]byte(p.Raw), &env.Pagination, "pagination"); err != nil {
			return nil, err
		}
	}

	pg := env.Pagination
	if pg.TotalPages == 0 {
		pg = domain.NewPagination(pg.Page, pg.Limit, pg.Total)
	}
	return &ports.LeadPage{Leads: domain.CloneLeads(env.Data), Pagination: pg}, nil
}

func (g *LeadGateway) Get(ctx context.Context, id string) (*domain.Lead, error) {
	resp, err := g.c.do(ctx, leadRoute(http.MethodGet, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeLead(resp.body, "lead")
}

func (g *LeadGateway) Create(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
	resp, err := g.c.do(ctx, route{http.MethodPost, leadsEndpoint, leadsPath}, nil, in)
	if err != nil {
		return nil, err
	}
	return decodeLead(resp.body, "created lead")
}

func (g *LeadGateway) Update(ctx context.Context, id string, in ports.UpdateLeadInput) (*domain.Lead, error) {
	resp, err := g.c.do(ctx, leadRoute(http.MethodPut, id), nil, in)
	if err != nil {
		return nil, err
	}
	return decodeLead(resp.body, "updated lead")
}

func (g *LeadGateway) Delete(ctx context.Context, id string) error {
	_, err := g.c.do(ctx, leadRoute(http.MethodDelete, id), nil, nil)
	return err
}

func leadRoute(method, id string) route {
	return route{method, leadEndpoint, leadsPath + "/" + url.PathEscape(id)}
}

// decodeLead accepts {data: lead}, {lead: lead} or a bare lead object.
func decodeLead(body []byte, what string) (*domain.Lead, error) {
	var l domain.Lead
	if err := decode(unwrap(body, "data", "lead"), &l, what); err != nil {
		return nil, err
	}
	return &l, nil
}
