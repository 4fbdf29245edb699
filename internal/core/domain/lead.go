package domain

import (
	"time"
)

// LeadSource is the acquisition channel of a lead.
type LeadSource string

const (
	SourceWebsite     LeadSource = "website"
	SourceFacebookAds LeadSource = "facebook_ads"
	SourceGoogleAds   LeadSource = "google_ads"
	SourceReferral    LeadSource = "referral"
	SourceEvents      LeadSource = "events"
	SourceOther       LeadSource = "other"
)

// LeadSources lists every valid source in display order.
var LeadSources = []LeadSource{
	SourceWebsite, SourceFacebookAds, SourceGoogleAds, SourceReferral, SourceEvents, SourceOther,
}

// Valid reports whether s is a known source.
func (s LeadSource) Valid() bool {
	for _, known := range LeadSources {
		if s == known {
			return true
		}
	}
	return false
}

// LeadStatus is the pipeline position of a lead.
type LeadStatus string

const (
	StatusNew       LeadStatus = "new"
	StatusContacted LeadStatus = "contacted"
	StatusQualified LeadStatus = "qualified"
	StatusLost      LeadStatus = "lost"
	StatusWon       LeadStatus = "won"
)

// LeadStatuses lists every valid status in pipeline order.
var LeadStatuses = []LeadStatus{
	StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon,
}

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

const (
	MinScore = 0
	MaxScore = 100
)

// Lead is a sales prospect record. IDs are assigned by the server.
type Lead struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Company        string     `json:"company"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Source         LeadSource `json:"source"`
	Status         LeadStatus `json:"status"`
	Score          int        `json:"score"`
	LeadValue      float64    `json:"lead_value"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	IsQualified    bool       `json:"is_qualified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Clone returns a copy that shares no pointers with l.
func (l Lead) Clone() Lead {
	if l.LastActivityAt != nil {
		ts := *l.LastActivityAt
		l.LastActivityAt = &ts
	}
	return l
}

// CloneLeads copies a slice of leads. A nil input yields an empty, non-nil slice.
func CloneLeads(in []Lead) []Lead {
	out := make([]Lead, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}
