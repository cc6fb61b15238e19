package domain

import "time"

// LeadStatus enumerates the lifecycle states of a lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadQueued    LeadStatus = "queued"
	LeadContacted LeadStatus = "contacted"
	LeadResponded LeadStatus = "responded"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
	LeadInvalid   LeadStatus = "invalid"
)

// Valid reports whether s is one of the allowed lead states.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadQueued, LeadContacted, LeadResponded, LeadConverted, LeadLost, LeadInvalid:
		return true
	}
	return false
}

// Confidence is the coarse reliability tier of a lead's contact data.
type Confidence string

const (
	ConfidenceUnknown Confidence = ""
	ConfidenceAlta    Confidence = "alta"
	ConfidenceMedia   Confidence = "media"
	ConfidenceBaixa   Confidence = "baixa"
)

// Valid reports whether c is one of the allowed confidence tiers.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceUnknown, ConfidenceAlta, ConfidenceMedia, ConfidenceBaixa:
		return true
	}
	return false
}

// Lead is one prospect record, owned by exactly one campaign. Deleting the
// campaign cascades to its leads; email log rows survive with a nulled FK.
type Lead struct {
	ID         string     `json:"id" db:"id"`
	CampaignID string     `json:"campaign_id" db:"campaign_id"`
	Status     LeadStatus `json:"status" db:"status"`

	ClinicName      string `json:"clinic_name" db:"clinic_name"`
	Address         string `json:"address" db:"address"`
	CityRegion      string `json:"city_region" db:"city_region"`
	CNPJ            string `json:"cnpj" db:"cnpj"`
	Website         string `json:"website" db:"website"`
	ContactName     string `json:"contact_name" db:"contact_name"`
	ContactRole     string `json:"contact_role" db:"contact_role"`
	ContactLinkedIn string `json:"contact_linkedin" db:"contact_linkedin"`
	Email           string `json:"email" db:"email"`
	EmailType       string `json:"email_type" db:"email_type"`
	Phone           string `json:"phone" db:"phone"`
	WhatsApp        string `json:"whatsapp" db:"whatsapp"`
	Instagram       string `json:"instagram" db:"instagram"`
	Source          string `json:"source" db:"source"`

	Confidence    Confidence `json:"confidence" db:"confidence"`
	Score         int        `json:"score" db:"score"`
	Notes         string     `json:"notes" db:"notes"`
	DiscardReason string     `json:"discard_reason" db:"discard_reason"`
	Insights      string     `json:"insights" db:"insights"`
	RawData       []byte     `json:"raw_data,omitempty" db:"raw_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the lead takes no further part in outbound
// automation. Manual transitions back are possible via explicit update.
func (l *Lead) IsTerminal() bool {
	switch l.Status {
	case LeadResponded, LeadConverted, LeadLost, LeadInvalid:
		return true
	}
	return false
}

// EmailTypeWeight classifications, kept in sync with the scoring table.
const (
	EmailTypeNominal  = "nominal"
	EmailTypeCargo    = "cargo"
	EmailTypeGenerico = "generico"
	EmailTypeFormOnly = "form_only"
)
