package domain

import "time"

// EmailStatus enumerates the outcome states of a single send attempt.
type EmailStatus string

const (
	EmailPending  EmailStatus = "pending"
	EmailSent     EmailStatus = "sent"
	EmailFailed   EmailStatus = "failed"
	EmailBounced  EmailStatus = "bounced"
	EmailRejected EmailStatus = "rejected"
)

// Valid reports whether s is one of the allowed email statuses.
func (s EmailStatus) Valid() bool {
	switch s {
	case EmailPending, EmailSent, EmailFailed, EmailBounced, EmailRejected:
		return true
	}
	return false
}

// EmailLogEntry records one send attempt. Rows are immutable once sent_at is
// set, except for the delivery-feedback transitions sent → bounced/rejected.
// LeadID and CampaignID are nullable: the audit trail outlives its parents.
type EmailLogEntry struct {
	ID         string  `json:"id" db:"id"`
	LeadID     *string `json:"lead_id" db:"lead_id"`
	CampaignID *string `json:"campaign_id" db:"campaign_id"`

	Recipient string      `json:"recipient" db:"recipient"`
	Subject   string      `json:"subject" db:"subject"`
	Body      string      `json:"body" db:"body"`
	Status    EmailStatus `json:"status" db:"status"`

	AttemptNumber     int    `json:"attempt_number" db:"attempt_number"`
	ProviderMessageID string `json:"provider_message_id" db:"provider_message_id"`
	ErrorMessage      string `json:"error_message" db:"error_message"`

	SentAt    *time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`

	// LeadName is populated by joined queries only.
	LeadName string `json:"lead_name,omitempty" db:"-"`
	// CampaignName is populated by joined queries only.
	CampaignName string `json:"campaign_name,omitempty" db:"-"`
}

// EventType enumerates delivery-feedback event kinds.
type EventType string

const (
	EventDelivered    EventType = "delivered"
	EventOpened       EventType = "opened"
	EventClicked      EventType = "clicked"
	EventBounced      EventType = "bounced"
	EventComplained   EventType = "complained"
	EventUnsubscribed EventType = "unsubscribed"
)

// Valid reports whether t is one of the allowed event types.
func (t EventType) Valid() bool {
	switch t {
	case EventDelivered, EventOpened, EventClicked, EventBounced, EventComplained, EventUnsubscribed:
		return true
	}
	return false
}

// EmailEvent is one delivery-feedback event, owned by its log entry.
// Append-only; cascades away with the log row.
type EmailEvent struct {
	ID         int64     `json:"id" db:"id"`
	EmailLogID string    `json:"email_log_id" db:"email_log_id"`
	EventType  EventType `json:"event_type" db:"event_type"`
	Payload    []byte    `json:"payload,omitempty" db:"payload"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DailyCount is one day's sent total, used by reporting windows.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}
