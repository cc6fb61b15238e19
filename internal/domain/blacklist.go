package domain

import (
	"strings"
	"time"
)

// BlacklistReason enumerates why an address was suppressed.
type BlacklistReason string

const (
	ReasonUserRequest   BlacklistReason = "user_request"
	ReasonHardBounce    BlacklistReason = "hard_bounce"
	ReasonSpamComplaint BlacklistReason = "spam_complaint"
	ReasonManual        BlacklistReason = "manual"
	ReasonInvalidEmail  BlacklistReason = "invalid_email"
)

// Valid reports whether r is one of the allowed suppression reasons.
func (r BlacklistReason) Valid() bool {
	switch r {
	case ReasonUserRequest, ReasonHardBounce, ReasonSpamComplaint, ReasonManual, ReasonInvalidEmail:
		return true
	}
	return false
}

// BlacklistEntry is a permanently suppressed recipient address. Email is
// unique and stored lowercased; Domain is generated by the database from
// the email column and is never writable by callers.
type BlacklistEntry struct {
	ID         string          `json:"id" db:"id"`
	Email      string          `json:"email" db:"email"`
	Domain     string          `json:"domain" db:"domain"`
	Reason     BlacklistReason `json:"reason" db:"reason"`
	CampaignID *string         `json:"campaign_id" db:"campaign_id"`
	AddedAt    time.Time       `json:"added_at" db:"added_at"`
}

// NormalizeEmail lowercases and trims an address the way every comparison
// in the system expects it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
