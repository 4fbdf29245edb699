// Package query composes the outgoing parameters of a lead list request.
//
// Compose is pure: the same Params always produce the same ordered Values.
// Filter fields holding a sentinel ("all" or blank) are left out entirely so
// the backend never sees an empty-string filter.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/leadflow/leadctl/internal/core/domain"
)

// All is the sentinel meaning "no filter applied".
const All = "all"

// DefaultSortField matches the backend's default ordering.
const DefaultSortField = "created_at"

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort selects the ordering of a list.
type Sort struct {
	Field string
	Order Order
}

// DefaultSort is newest first.
func DefaultSort() Sort {
	return Sort{Field: DefaultSortField, Order: Desc}
}

// Toggle flips the order when field is already the sort field and ascending,
// otherwise it sorts field ascending.
func (s Sort) Toggle(field string) Sort {
	if s.Field == field && s.Order == Asc {
		return Sort{Field: field, Order: Desc}
	}
	return Sort{Field: field, Order: Asc}
}

// Filters narrows the list. Every field accepts the All sentinel.
type Filters struct {
	Status    string
	Source    string
	Qualified string // Yes/No/true/false/all
}

// Params is the full list state a view can request.
type Params struct {
	Search  string
	Filters Filters
	Sort    Sort
	Page    int
	Limit   int
}

// Default is the first page, unfiltered, newest first.
func Default() Params {
	return Params{
		Filters: Filters{Status: All, Source: All, Qualified: All},
		Sort:    DefaultSort(),
		Page:    domain.DefaultPage,
		Limit:   domain.DefaultLimit,
	}
}

// WithPage returns a copy of p pointing at page n.
func (p Params) WithPage(n int) Params {
	p.Page = n
	return p
}

// WithFilters returns a copy of p with new filters, reset to the first page.
func (p Params) WithFilters(f Filters) Params {
	p.Filters = f
	p.Page = domain.DefaultPage
	return p
}

// Validate rejects params the backend cannot serve.
func (p Params) Validate() error {
	fields := map[string]string{}
	if p.Page < 1 {
		fields["page"] = "page must be at least 1"
	}
	if p.Limit < 1 || p.Limit > domain.MaxLimit {
		fields["limit"] = "limit must be between 1 and " + strconv.Itoa(domain.MaxLimit)
	}
	if v := strings.TrimSpace(p.Filters.Status); !isSentinel(v) && !domain.LeadStatus(strings.ToLower(v)).Valid() {
		fields["status"] = "status must be one of: new contacted qualified lost won"
	}
	if v := strings.TrimSpace(p.Filters.Source); !isSentinel(v) && !domain.LeadSource(strings.ToLower(v)).Valid() {
		fields["source"] = "source must be one of: website facebook_ads google_ads referral events other"
	}
	if v := p.Filters.Qualified; !isSentinel(v) && qualified(v) == "" {
		fields["is_qualified"] = "is_qualified must be one of: Yes No"
	}
	if o := strings.ToLower(string(p.Sort.Order)); o != "" && o != string(Asc) && o != string(Desc) {
		fields["sort_order"] = "sort_order must be one of: asc desc"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Param is one key/value pair of the outgoing query.
type Param struct {
	Key   string
	Value string
}

// Values is an ordered parameter set.
type Values []Param

// Get returns the value stored under key.
func (v Values) Get(key string) (string, bool) {
	for _, p := range v {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Encode renders v as a query string, keeping insertion order.
func (v Values) Encode() string {
	var b strings.Builder
	for i, p := range v {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Compose builds the outgoing parameters in the fixed order
// page, limit, search, status, source, is_qualified, sort_by, sort_order.
func Compose(p Params) Values {
	out := make(Values, 0, 8)
	add := func(key, value string) {
		out = append(out, Param{Key: key, Value: value})
	}

	if p.Page > 0 {
		add("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		add("limit", strconv.Itoa(p.Limit))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		add("search", s)
	}
	if s := strings.TrimSpace(p.Filters.Status); !isSentinel(s) {
		add("status", strings.ToLower(s))
	}
	if s := strings.TrimSpace(p.Filters.Source); !isSentinel(s) {
		add("source", strings.ToLower(s))
	}
	if q := qualified(p.Filters.Qualified); q != "" {
		add("is_qualified", q)
	}
	if f := strings.TrimSpace(p.Sort.Field); f != "" {
		add("sort_by", f)
	}
	switch o := Order(strings.ToLower(string(p.Sort.Order))); o {
	case Asc, Desc:
		add("sort_order", string(o))
	}
	return out
}

func isSentinel(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}

// qualified maps the qualified filter onto the wire value; "" means omit.
func qualified(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true":
		return "true"
	case "no", "false":
		return "false"
	default:
		return ""
	}
}
