package ports

import (
	"time"

	"github.com/leadflow/leadctl/internal/core/domain"
)

// LoginInput carries the credentials for users/login.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupInput carries a new account for users/register.
type SignupInput struct {
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName"  validate:"required,min=2"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,password_policy"`
}

// ProfileInput is a partial profile update; nil fields are left untouched.
type ProfileInput struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=2"`
	LastName  *string `json:"last_name,omitempty"  validate:"omitempty,min=2"`
	Email     *string `json:"email,omitempty"      validate:"omitempty,email"`
}

// Empty reports whether the update changes nothing.
func (p ProfileInput) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil
}

// ChangePasswordInput rotates the password. ConfirmPassword never leaves the client.
type ChangePasswordInput struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password_policy"`
	ConfirmPassword string `json:"-"           validate:"required,eqfield=NewPassword"`
}

// CreateLeadInput is the body of POST leads/leads.
type CreateLeadInput struct {
	FirstName      string            `json:"first_name"                 validate:"required,min=2"`
	LastName       string            `json:"last_name"                  validate:"required,min=2"`
	Email          string            `json:"email"                      validate:"required,email"`
	Phone          string            `json:"phone"                      validate:"required,phone"`
	Company        string            `json:"company"                    validate:"required,min=2"`
	City           string            `json:"city"                       validate:"required,min=2"`
	State          string            `json:"state"                      validate:"required,min=2"`
	Source         domain.LeadSource `json:"source"                     validate:"required,oneof=website facebook_ads google_ads referral events other"`
	Status         domain.LeadStatus `json:"status"                     validate:"required,oneof=new contacted qualified lost won"`
	Score          int               `json:"score"                      validate:"min=0,max=100"`
	LeadValue      float64           `json:"lead_value"                 validate:"min=0"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty" validate:"omitempty,not_future"`
	IsQualified    bool              `json:"is_qualified"`
}

// UpdateLeadInput is a partial update for PUT leads/leads/:id; nil fields are left untouched.
type UpdateLeadInput struct {
	FirstName      *string            `json:"first_name,omitempty"       validate:"omitempty,min=2"`
	LastName       *string            `json:"last_name,omitempty"        validate:"omitempty,min=2"`
	Email          *string            `json:"email,omitempty"            validate:"omitempty,email"`
	Phone          *string            `json:"phone,omitempty"            validate:"omitempty,phone"`
	Company        *string            `json:"company,omitempty"          validate:"omitempty,min=2"`
	City           *string            `json:"city,omitempty"             validate:"omitempty,min=2"`
	State          *string            `json:"state,omitempty"            validate:"omitempty,min=2"`
	Source         *domain.LeadSource `json:"source,omitempty"           validate:"omitempty,oneof=website facebook_ads google_ads referral events other"`
	Status         *domain.LeadStatus `json:"status,omitempty"           validate:"omitempty,oneof=new contacted qualified lost won"`
	Score          *int               `json:"score,omitempty"            validate:"omitempty,min=0,max=100"`
	LeadValue      *float64           `json:"lead_value,omitempty"       validate:"omitempty,min=0"`
	LastActivityAt *time.Time         `json:"last_activity_at,omitempty" validate:"omitempty,not_future"`
	IsQualified    *bool              `json:"is_qualified,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u UpdateLeadInput) Empty() bool {
	return u == UpdateLeadInput{}
}

// Apply overlays the set fields of u onto l.
func (u UpdateLeadInput) Apply(l domain.Lead) domain.Lead {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&l.FirstName, u.FirstName)
	setString(&l.LastName, u.LastName)
	setString(&l.Email, u.Email)
	setString(&l.Phone, u.Phone)
	setString(&l.Company, u.Company)
	setString(&l.City, u.City)
	setString(&l.State, u.State)
	if u.Source != nil {
		l.Source = *u.Source
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.Score != nil {
		l.Score = *u.Score
	}
	if u.LeadValue != nil {
		l.LeadValue = *u.LeadValue
	}
	if u.LastActivityAt != nil {
		ts := *u.LastActivityAt
		l.LastActivityAt = &ts
	}
	if u.IsQualified != nil {
		l.IsQualified = *u.IsQualified
	}
	return l
}
