package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/lifecycle"
	"github.com/abaplay/outreach/internal/shortid"
)

// LogEmailAttempt records a send attempt with status pending and returns
// the generated log id. Attempt numbers increase per lead.
func (s *Store) LogEmailAttempt(ctx context.Context, leadID, campaignID, recipient, subject, body string, attemptNumber int) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("log email attempt: recipient is required")
	}
	if attemptNumber < 1 {
		attemptNumber = 1
	}
	recipient = domain.NormalizeEmail(recipient)

	for attempt := 0; attempt < 3; attempt++ {
		id := shortid.New()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO email_log (id, lead_id, campaign_id, recipient, subject, body, status, attempt_number)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
		`, id, nullableID(leadID), nullableID(campaignID), recipient, subject, body, attemptNumber)
		if err == nil {
			return id, nil
		}
		err = classify(err)
		if ce, ok := err.(*ConstraintError); ok && ce.Kind == ConstraintUnique && ce.Constraint == "email_log_pkey" {
			continue
		}
		return "", fmt.Errorf("log email attempt: %w", err)
	}
	return "", fmt.Errorf("log email attempt: id collisions exhausted retries")
}

// UpdateEmailStatus moves one log entry through its lifecycle and applies
// the side effects centrally: a sent entry stamps sent_at once, moves a
// queued lead to contacted, and bumps the daily counter; a bounced entry
// proposes the recipient for the blacklist with reason hard_bounce; sent
// and failed both recompute the owning campaign's counters. Everything runs
// in one transaction so partial application is impossible.
func (s *Store) UpdateEmailStatus(ctx context.Context, logID string, status domain.EmailStatus, providerMessageID, errorMessage string) error {
	if !status.Valid() {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "email_log_status_check",
			Err: fmt.Errorf("invalid email status %q", status)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update email status: %w", err)
	}
	defer tx.Rollback()

	var (
		current    domain.EmailStatus
		leadID     sql.NullString
		campaignID sql.NullString
		recipient  string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, lead_id, campaign_id, recipient FROM email_log WHERE id = $1
	`, logID).Scan(&current, &leadID, &campaignID, &recipient)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update email status: log entry %s not found", logID)
	}
	if err != nil {
		return fmt.Errorf("update email status: %w", err)
	}
	if current == status {
		// Replayed update: nothing changed, and the side effects below
		// (daily counter, blacklist, campaign counters) must not run twice
		// for one real send.
		return nil
	}
	if !lifecycle.CanTransitionEmail(current, status) {
		return fmt.Errorf("update email status: %q cannot move to %q", current, status)
	}

	// sent_at is stamped exactly once, when the attempt reaches the provider.
	_, err = tx.ExecContext(ctx, `
		UPDATE email_log
		SET status = $1,
		    provider_message_id = COALESCE(NULLIF($2,''), provider_message_id),
		    error_message = COALESCE(NULLIF($3,''), error_message),
		    sent_at = CASE WHEN $1 = 'sent' AND sent_at IS NULL THEN NOW() ELSE sent_at END
		WHERE id = $4
	`, status, providerMessageID, errorMessage, logID)
	if err != nil {
		return fmt.Errorf("update email status: %w", classify(err))
	}

	react := lifecycle.React(status)

	if react.LeadStatus != "" && leadID.Valid {
		// Only the automated queued → contacted move happens here; anything
		// else is an explicit operator action through UpdateLeadStatus.
		_, err = tx.ExecContext(ctx, `
			UPDATE leads SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = 'queued'
		`, react.LeadStatus, leadID.String)
		if err != nil {
			return fmt.Errorf("update email status: propagate lead status: %w", err)
		}
	}

	if react.ProposeBlacklist && recipient != "" {
		if err := insertBlacklistTx(ctx, tx, recipient, react.BlacklistReason, campaignID); err != nil {
			return fmt.Errorf("update email status: blacklist proposal: %w", err)
		}
	}

	if react.RefreshCounters && campaignID.Valid {
		if _, err := tx.ExecContext(ctx, refreshCountersSQL, campaignID.String); err != nil {
			return fmt.Errorf("update email status: refresh counters: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update email status: commit: %w", err)
	}

	// Cache bookkeeping after commit: the truth changed, do not wait for TTLs.
	switch status {
	case domain.EmailSent:
		s.daily.Increment(s.today())
	case domain.EmailBounced:
		s.blacklist.Add(domain.NormalizeEmail(recipient))
		log.Printf("[store] hard bounce: %s blacklisted (log %s)", recipient, logID)
	}
	return nil
}

// EmailAttempts returns the number of send attempts recorded for a lead.
func (s *Store) EmailAttempts(ctx context.Context, leadID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_log WHERE lead_id = $1`, leadID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("email attempts: %w", err)
	}
	return n, nil
}

// EmailLogByCampaign returns a campaign's log entries, most recent first,
// joined with the owning lead's clinic name for display.
func (s *Store) EmailLogByCampaign(ctx context.Context, campaignID string) ([]domain.EmailLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT el.id, el.lead_id, el.campaign_id, el.recipient,
		       COALESCE(el.subject,''), COALESCE(el.body,''), el.status,
		       el.attempt_number, COALESCE(el.provider_message_id,''),
		       COALESCE(el.error_message,''), el.sent_at, el.created_at,
		       COALESCE(l.clinic_name,'')
		FROM email_log el
		LEFT JOIN leads l ON el.lead_id = l.id
		WHERE el.campaign_id = $1
		ORDER BY el.created_at DESC, el.id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("email log by campaign: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailLogEntry
	for rows.Next() {
		var e domain.EmailLogEntry
		if err := rows.Scan(
			&e.ID, &e.LeadID, &e.CampaignID, &e.Recipient,
			&e.Subject, &e.Body, &e.Status,
			&e.AttemptNumber, &e.ProviderMessageID,
			&e.ErrorMessage, &e.SentAt, &e.CreatedAt,
			&e.LeadName,
		); err != nil {
			return nil, fmt.Errorf("scan email log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
