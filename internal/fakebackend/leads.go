package fakebackend

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
)

// Seed stores leads as-is, assigning ids and timestamps where missing.
func (s *Server) Seed(leads ...domain.Lead) []domain.Lead {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, len(leads))
	for i, l := range leads {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		if l.UpdatedAt.IsZero() {
			l.UpdatedAt = l.CreatedAt
		}
		s.leads[l.ID] = l.Clone()
		out[i] = l
	}
	return out
}

func (s *Server) listLeads(c echo.Context) error {
	page := atoiDefault(c.QueryParam("page"), domain.DefaultPage)
	limit := atoiDefault(c.QueryParam("limit"), domain.DefaultLimit)
	if page < 1 || limit < 1 || limit > domain.MaxLimit {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters")
	}

	// empty parameter values are rejected outright
	for key, values := range c.QueryParams() {
		if slices.Contains(values, "") {
			return echo.NewHTTPError(http.StatusBadRequest, "Empty value for query parameter "+key)
		}
	}

	search := strings.ToLower(strings.TrimSpace(c.QueryParam("search")))
	status := c.QueryParam("status")
	source := c.QueryParam("source")
	qualified := c.QueryParam("is_qualified")

	s.mu.Lock()
	matched := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if status != "" && string(l.Status) != status {
			continue
		}
		if source != "" && string(l.Source) != source {
			continue
		}
		if qualified != "" && strconv.FormatBool(l.IsQualified) != qualified {
			continue
		}
		if search != "" && !matches(l, search) {
			continue
		}
		matched = append(matched, l.Clone())
	}
	s.mu.Unlock()

	sortLeads(matched, c.QueryParam("sort_by"), c.QueryParam("sort_order"))

	total := int64(len(matched))
	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))

	return c.JSON(http.StatusOK, map[string]any{
		"data":       matched[start:end],
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": domain.TotalPages(total, limit),
	})
}

func (s *Server) getLead(c echo.Context) error {
	s.mu.Lock()
	l, ok := s.leads[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return errLeadNotFound
	}
	return c.JSON(http.StatusOK, map[string]any{"data": l})
}

func (s *Server) createLead(c echo.Context) error {
	var in ports.CreateLeadInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if in.Email == "" || in.FirstName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "First name and email are required")
	}

	now := s.clock()
	l := domain.Lead{
		ID:          uuid.NewString(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		Company:     in.Company,
		City:        in.City,
		State:       in.State,
		Source:      in.Source,
		Status:      in.Status,
		Score:       in.Score,
		LeadValue:   in.LeadValue,
		IsQualified: in.IsQualified,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.LastActivityAt != nil {
		ts := *in.LastActivityAt
		l.LastActivityAt = &ts
	}

	s.mu.Lock()
	for _, existing := range s.leads {
		if strings.EqualFold(existing.Email, l.Email) {
			s.mu.Unlock()
			return echo.NewHTTPError(http.StatusConflict, "Lead with this email already exists")
		}
	}
	s.leads[l.ID] = l
	s.mu.Unlock()

	return message(c, http.StatusCreated, "Lead created successfully", map[string]any{"data": l})
}

func (s *Server) updateLead(c echo.Context) error {
	var in ports.UpdateLeadInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[c.Param("id")]
	if !ok {
		return errLeadNotFound
	}
	l = in.Apply(l)
	l.UpdatedAt = now
	s.leads[l.ID] = l
	return message(c, http.StatusOK, "Lead updated successfully", map[string]any{"data": l})
}

func (s *Server) deleteLead(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.leads[id]; !ok {
		return errLeadNotFound
	}
	delete(s.leads, id)
	return message(c, http.StatusOK, "Lead deleted successfully", nil)
}

func matches(l domain.Lead, term string) bool {
	for _, f := range []string{l.FirstName, l.LastName, l.Email, l.Company, l.City} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// sortLeads orders by field (default created_at) and order (default desc).
// Ties break on id so pages are stable.
func sortLeads(leads []domain.Lead, field, order string) {
	desc := order != "asc"
	if field == "" {
		field = "created_at"
	}
	slices.SortStableFunc(leads, func(a, b domain.Lead) int {
		var r int
		switch field {
		case "score":
			r = cmp.Compare(a.Score, b.Score)
		case "lead_value":
			r = cmp.Compare(a.LeadValue, b.LeadValue)
		case "first_name":
			r = cmp.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName))
		case "last_name":
			r = cmp.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName))
		case "company":
			r = cmp.Compare(strings.ToLower(a.Company), strings.ToLower(b.Company))
		case "updated_at":
			r = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			r = a.CreatedAt.Compare(b.CreatedAt)
		}
		if r == 0 {
			r = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -r
		}
		return r
	})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
