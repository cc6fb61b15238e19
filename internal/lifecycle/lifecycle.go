// Package lifecycle encodes the two state machines of the system: the lead
// status lifecycle and the email-log status lifecycle, plus the side effects
// that tie them together. The store invokes these rules after every
// status-changing write so call sites never have to remember them.
package lifecycle

import (
	"fmt"

	"github.com/abaplay/outreach/internal/domain"
)

// leadTransitions maps each lead state to the states reachable from it
// through the outbound automation flow.
var leadTransitions = map[domain.LeadStatus][]domain.LeadStatus{
	domain.LeadNew:       {domain.LeadQueued, domain.LeadInvalid, domain.LeadLost},
	domain.LeadQueued:    {domain.LeadContacted, domain.LeadInvalid, domain.LeadLost, domain.LeadNew},
	domain.LeadContacted: {domain.LeadResponded, domain.LeadConverted, domain.LeadLost, domain.LeadInvalid},
	// Terminal states: no automated transitions. Manual operator moves back
	// are not structurally forbidden, see CanTransition.
	domain.LeadResponded: {domain.LeadConverted, domain.LeadLost},
	domain.LeadConverted: {},
	domain.LeadLost:      {},
	domain.LeadInvalid:   {},
}

// CanTransition reports whether the automation flow allows moving a lead
// from one status to another. Manual reopening of terminal leads goes
// through ForceTransition semantics in the store (explicit operator action),
// not through this check.
func CanTransition(from, to domain.LeadStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiresDiscardReason reports whether a transition into this status must
// carry an operator-supplied discard reason.
func RequiresDiscardReason(to domain.LeadStatus) bool {
	return to == domain.LeadLost || to == domain.LeadInvalid
}

// emailTransitions: pending → sent → {bounced, rejected}; pending → failed.
// A failed or pending attempt is retried via a new log row with the next
// attempt number, never by mutating the old row.
var emailTransitions = map[domain.EmailStatus][]domain.EmailStatus{
	domain.EmailPending:  {domain.EmailSent, domain.EmailFailed},
	domain.EmailSent:     {domain.EmailBounced, domain.EmailRejected},
	domain.EmailFailed:   {},
	domain.EmailBounced:  {},
	domain.EmailRejected: {},
}

// CanTransitionEmail reports whether an email log row may move between the
// two statuses.
func CanTransitionEmail(from, to domain.EmailStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range emailTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reaction describes the side effects a single email status change demands.
type Reaction struct {
	// LeadStatus, when non-empty, is the status the owning lead should move
	// to (only applied if the lead is currently in a state that allows it).
	LeadStatus domain.LeadStatus
	// ProposeBlacklist signals the recipient address should be inserted into
	// the blacklist with BlacklistReason.
	ProposeBlacklist bool
	BlacklistReason  domain.BlacklistReason
	// RefreshCounters signals the owning campaign's sent/failed counters
	// must be recomputed from the underlying rows.
	RefreshCounters bool
}

// React returns the side effects of an email log row reaching status. This
// is the one place the implicit couplings live: sent ⇒ lead contacted,
// hard bounce ⇒ blacklist proposal, sent/failed ⇒ campaign counters.
func React(status domain.EmailStatus) Reaction {
	switch status {
	case domain.EmailSent:
		return Reaction{LeadStatus: domain.LeadContacted, RefreshCounters: true}
	case domain.EmailFailed:
		return Reaction{RefreshCounters: true}
	case domain.EmailBounced:
		return Reaction{
			ProposeBlacklist: true,
			BlacklistReason:  domain.ReasonHardBounce,
			RefreshCounters:  true,
		}
	default:
		return Reaction{}
	}
}

// ValidateTransition returns a descriptive error when a lead move is not
// allowed, nil otherwise.
func ValidateTransition(from, to domain.LeadStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown lead status %q", to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("lead status %q cannot move to %q", from, to)
	}
	return nil
}
