package lifecycle

import (
	"testing"

	"github.com/abaplay/outreach/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.LeadStatus
		to   domain.LeadStatus
		want bool
	}{
		{"new to queued", domain.LeadNew, domain.LeadQueued, true},
		{"queued to contacted", domain.LeadQueued, domain.LeadContacted, true},
		{"contacted to responded", domain.LeadContacted, domain.LeadResponded, true},
		{"contacted to converted", domain.LeadContacted, domain.LeadConverted, true},
		{"contacted to lost", domain.LeadContacted, domain.LeadLost, true},
		{"contacted to invalid", domain.LeadContacted, domain.LeadInvalid, true},
		{"same state is a no-op", domain.LeadQueued, domain.LeadQueued, true},
		{"new cannot skip to contacted", domain.LeadNew, domain.LeadContacted, false},
		{"converted is terminal", domain.LeadConverted, domain.LeadQueued, false},
		{"lost is terminal", domain.LeadLost, domain.LeadContacted, false},
		{"unknown target rejected", domain.LeadNew, domain.LeadStatus("archived"), false},
		{"unknown source rejected", domain.LeadStatus(""), domain.LeadQueued, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanTransitionEmail(t *testing.T) {
	tests := []struct {
		name string
		from domain.EmailStatus
		to   domain.EmailStatus
		want bool
	}{
		{"pending to sent", domain.EmailPending, domain.EmailSent, true},
		{"pending to failed", domain.EmailPending, domain.EmailFailed, true},
		{"sent to bounced", domain.EmailSent, domain.EmailBounced, true},
		{"sent to rejected", domain.EmailSent, domain.EmailRejected, true},
		{"sent back to pending", domain.EmailSent, domain.EmailPending, false},
		{"failed to sent", domain.EmailFailed, domain.EmailSent, false},
		{"bounced is terminal", domain.EmailBounced, domain.EmailSent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransitionEmail(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionEmail(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestReact(t *testing.T) {
	sent := React(domain.EmailSent)
	if sent.LeadStatus != domain.LeadContacted {
		t.Errorf("sent reaction lead status = %q, want contacted", sent.LeadStatus)
	}
	if !sent.RefreshCounters {
		t.Error("sent reaction should refresh campaign counters")
	}
	if sent.ProposeBlacklist {
		t.Error("sent reaction should not propose blacklist")
	}

	bounced := React(domain.EmailBounced)
	if !bounced.ProposeBlacklist || bounced.BlacklistReason != domain.ReasonHardBounce {
		t.Errorf("bounce reaction = %+v, want hard_bounce blacklist proposal", bounced)
	}

	failed := React(domain.EmailFailed)
	if failed.LeadStatus != "" {
		t.Errorf("failed reaction should not move the lead, got %q", failed.LeadStatus)
	}
	if !failed.RefreshCounters {
		t.Error("failed reaction should refresh campaign counters")
	}

	pending := React(domain.EmailPending)
	if pending != (Reaction{}) {
		t.Errorf("pending reaction = %+v, want zero", pending)
	}
}

func TestRequiresDiscardReason(t *testing.T) {
	if !RequiresDiscardReason(domain.LeadLost) || !RequiresDiscardReason(domain.LeadInvalid) {
		t.Error("lost and invalid must require a discard reason")
	}
	if RequiresDiscardReason(domain.LeadConverted) {
		t.Error("converted must not require a discard reason")
	}
}
