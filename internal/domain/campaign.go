package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignPending   CampaignStatus = "pending"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Valid reports whether s is one of the allowed campaign states.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignPending, CampaignActive, CampaignPaused, CampaignCompleted, CampaignCancelled:
		return true
	}
	return false
}

// Campaign represents one prospecting batch. The counters are maintained by
// the store and always reflect the true count of child rows when read;
// callers never compute them ad hoc.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Region      string         `json:"region" db:"region"`
	Description string         `json:"description" db:"description"`
	Status      CampaignStatus `json:"status" db:"status"`

	TotalLeads   int `json:"total_leads" db:"total_leads"`
	EmailsSent   int `json:"emails_sent" db:"emails_sent"`
	EmailsFailed int `json:"emails_failed" db:"emails_failed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignCancelled
}

// CampaignSummary is the aggregate read model for a campaign, recomputed
// from the underlying rows on every call.
type CampaignSummary struct {
	Campaign      Campaign `json:"campaign"`
	LeadCount     int      `json:"lead_count"`
	ContactedLeads int     `json:"contacted_leads"`
	EmailsSent    int      `json:"emails_sent"`
	EmailsFailed  int      `json:"emails_failed"`
	EmailsBounced int      `json:"emails_bounced"`
	AverageScore  float64  `json:"average_score"`
}
