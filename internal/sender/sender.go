// Package sender drives outbound email: it gates each send on the
// blacklist, the per-lead attempt cap and the daily cap, renders the
// personalized content, records the attempt, and hands the message to the
// transport. Every outcome, including transport failure, leaves an email
// log row behind.
package sender

import (
	"context"
	"fmt"
	"log"

	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/template"
)

// Message is one outbound email handed to the transport.
type Message struct {
	FromName string
	From     string
	To       string
	Subject  string
	Body     string
	Headers  map[string]string
}

// Transport delivers a message and returns the provider's message id. The
// network contract (retries, timeouts) lives behind this interface.
type Transport interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// Store is the slice of the data-access layer the sender needs.
type Store interface {
	IsBlacklisted(ctx context.Context, email string) (bool, error)
	EmailAttempts(ctx context.Context, leadID string) (int, error)
	EmailsSentToday(ctx context.Context) (int, error)
	IntSetting(ctx context.Context, key string, fallback int) (int, error)
	LogEmailAttempt(ctx context.Context, leadID, campaignID, recipient, subject, body string, attemptNumber int) (string, error)
	UpdateEmailStatus(ctx context.Context, logID string, status domain.EmailStatus, providerMessageID, errorMessage string) error
	UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus, discardReason string, force bool) error
}

// Limiter optionally enforces the daily cap across processes. Nil means the
// in-process count from the store is the only guard.
type Limiter interface {
	Allow(ctx context.Context, limit int) (bool, error)
}

// Sender orchestrates one send at a time; the batch loop above it owns
// pacing and ordering.
type Sender struct {
	store     Store
	transport Transport
	templates *template.Engine
	limiter   Limiter

	FromName string
	From     string
}

// New wires a sender. limiter may be nil.
func New(store Store, transport Transport, templates *template.Engine, limiter Limiter, fromName, from string) *Sender {
	return &Sender{
		store:     store,
		transport: transport,
		templates: templates,
		limiter:   limiter,
		FromName:  fromName,
		From:      from,
	}
}

// Result reports what happened to one send.
type Result struct {
	LogID      string
	Sent       bool
	Skipped    bool
	SkipReason string
}

// Send processes one lead end to end. A skip (blacklist, caps, missing
// address) is not an error; a transport failure is an error and still
// produces a failed log entry.
func (s *Sender) Send(ctx context.Context, lead *domain.Lead) (*Result, error) {
	if lead.Email == "" {
		return &Result{Skipped: true, SkipReason: "lead has no email"}, nil
	}

	suppressed, err := s.store.IsBlacklisted(ctx, lead.Email)
	if err != nil {
		return nil, fmt.Errorf("blacklist check: %w", err)
	}
	if suppressed {
		return &Result{Skipped: true, SkipReason: "recipient is blacklisted"}, nil
	}

	maxAttempts, err := s.store.IntSetting(ctx, domain.SettingMaxAttemptsPerLead, 2)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.EmailAttempts(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	if attempts >= maxAttempts {
		return &Result{Skipped: true, SkipReason: fmt.Sprintf("attempt cap reached (%d/%d)", attempts, maxAttempts)}, nil
	}

	dailyLimit, err := s.store.IntSetting(ctx, domain.SettingDailyEmailLimit, 20)
	if err != nil {
		return nil, err
	}
	sentToday, err := s.store.EmailsSentToday(ctx)
	if err != nil {
		return nil, err
	}
	if sentToday >= dailyLimit {
		return &Result{Skipped: true, SkipReason: fmt.Sprintf("daily limit reached (%d/%d)", sentToday, dailyLimit)}, nil
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, dailyLimit)
		if err != nil {
			// The shared limiter is an extra guard; losing it degrades to
			// per-process counting rather than blocking the batch.
			log.Printf("[sender] shared limiter unavailable: %v", err)
		} else if !ok {
			return &Result{Skipped: true, SkipReason: "daily limit reached (shared)"}, nil
		}
	}

	content, err := s.templates.Personalize(lead)
	if err != nil {
		return nil, fmt.Errorf("render content: %w", err)
	}

	// Entering the send batch moves a fresh lead into the queue.
	if lead.Status == domain.LeadNew {
		if err := s.store.UpdateLeadStatus(ctx, lead.ID, domain.LeadQueued, "", false); err != nil {
			return nil, fmt.Errorf("queue lead: %w", err)
		}
		lead.Status = domain.LeadQueued
	}

	logID, err := s.store.LogEmailAttempt(ctx, lead.ID, lead.CampaignID,
		lead.Email, content.Subject, content.Body, attempts+1)
	if err != nil {
		return nil, fmt.Errorf("log attempt: %w", err)
	}

	msg := &Message{
		FromName: s.FromName,
		From:     s.From,
		To:       lead.Email,
		Subject:  content.Subject,
		Body:     content.Body,
		Headers: map[string]string{
			"List-Unsubscribe": fmt.Sprintf("<mailto:%s?subject=REMOVER>", s.From),
			"X-Entity-Ref-ID":  fmt.Sprintf("campaign-%s-lead-%s", lead.CampaignID, lead.ID),
		},
	}

	providerID, sendErr := s.transport.Send(ctx, msg)
	if sendErr != nil {
		// The failed attempt must still be on record.
		if updErr := s.store.UpdateEmailStatus(ctx, logID, domain.EmailFailed, "", sendErr.Error()); updErr != nil {
			log.Printf("[sender] record failure for log %s: %v", logID, updErr)
		}
		return &Result{LogID: logID}, fmt.Errorf("send to %s: %w", lead.Email, sendErr)
	}

	if err := s.store.UpdateEmailStatus(ctx, logID, domain.EmailSent, providerID, ""); err != nil {
		return &Result{LogID: logID}, fmt.Errorf("record sent status: %w", err)
	}
	return &Result{LogID: logID, Sent: true}, nil
}
