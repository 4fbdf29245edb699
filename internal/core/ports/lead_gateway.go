package ports

import (
	"context"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/query"
)

// LeadPage is one page of a list response.
type LeadPage struct {
	Leads      []domain.Lead
	Pagination domain.Pagination
}

// LeadGateway is the lead half of the backend REST API.
type LeadGateway interface {
	List(ctx context.Context, params query.Values) (*LeadPage, error)
	Get(ctx context.Context, id string) (*domain.Lead, error)
	Create(ctx context.Context, in CreateLeadInput) (*domain.Lead, error)
	Update(ctx context.Context, id string, in UpdateLeadInput) (*domain.Lead, error)
	Delete(ctx context.Context, id string) error
}
