package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/lifecycle"
	"github.com/abaplay/outreach/internal/shortid"
)

const leadColumns = `id, campaign_id, status, clinic_name, COALESCE(address,''),
	COALESCE(city_region,''), COALESCE(cnpj,''), COALESCE(website,''),
	COALESCE(contact_name,''), COALESCE(contact_role,''), COALESCE(contact_linkedin,''),
	COALESCE(email,''), COALESCE(email_type,''), COALESCE(phone,''),
	COALESCE(whatsapp,''), COALESCE(instagram,''), COALESCE(source,''),
	confidence, score, COALESCE(notes,''), COALESCE(discard_reason,''),
	COALESCE(insights,''), raw_data, created_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*domain.Lead, error) {
	l := &domain.Lead{}
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.Status, &l.ClinicName, &l.Address,
		&l.CityRegion, &l.CNPJ, &l.Website,
		&l.ContactName, &l.ContactRole, &l.ContactLinkedIn,
		&l.Email, &l.EmailType, &l.Phone,
		&l.WhatsApp, &l.Instagram, &l.Source,
		&l.Confidence, &l.Score, &l.Notes, &l.DiscardReason,
		&l.Insights, &l.RawData, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// validateLead checks the enumerated and range constraints before the
// insert ever reaches the store, so bad input fails fast with a typed error.
func validateLead(l *domain.Lead) error {
	if l.CampaignID == "" {
		return fmt.Errorf("lead requires a campaign_id")
	}
	if l.ClinicName == "" {
		return fmt.Errorf("lead requires a clinic name")
	}
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	if !l.Status.Valid() {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "leads_status_check",
			Err: fmt.Errorf("invalid lead status %q", l.Status)}
	}
	if !l.Confidence.Valid() {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "leads_confidence_check",
			Err: fmt.Errorf("invalid confidence %q", l.Confidence)}
	}
	if l.Score < 0 || l.Score > 100 {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "leads_score_check",
			Err: fmt.Errorf("score %d outside [0,100]", l.Score)}
	}
	return nil
}

// CreateLead inserts a lead into its campaign and returns the generated id.
// The campaign's total_leads counter is recomputed in the same transaction.
func (s *Store) CreateLead(ctx context.Context, l *domain.Lead) (string, error) {
	if err := validateLead(l); err != nil {
		return "", err
	}
	if l.Email != "" {
		l.Email = domain.NormalizeEmail(l.Email)
	}

	for attempt := 0; attempt < 3; attempt++ {
		id := shortid.New()
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return "", fmt.Errorf("create lead: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO leads (
				id, campaign_id, status, clinic_name, address, city_region, cnpj,
				website, contact_name, contact_role, contact_linkedin, email,
				email_type, phone, whatsapp, instagram, source, confidence,
				score, notes, discard_reason, raw_data
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		`, id, l.CampaignID, l.Status, l.ClinicName, l.Address, l.CityRegion, l.CNPJ,
			l.Website, l.ContactName, l.ContactRole, l.ContactLinkedIn, l.Email,
			l.EmailType, l.Phone, l.WhatsApp, l.Instagram, l.Source, l.Confidence,
			l.Score, l.Notes, l.DiscardReason, nullableJSON(l.RawData))
		if err != nil {
			tx.Rollback()
			err = classify(err)
			if ce, ok := err.(*ConstraintError); ok && ce.Kind == ConstraintUnique && ce.Constraint == "leads_pkey" {
				continue // id collision, retry with a fresh one
			}
			return "", fmt.Errorf("create lead: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE campaigns SET
				total_leads = (SELECT COUNT(*) FROM leads WHERE campaign_id = $1),
				updated_at = NOW()
			WHERE id = $1
		`, l.CampaignID); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("create lead: refresh counters: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("create lead: commit: %w", err)
		}
		l.ID = id
		return id, nil
	}
	return "", fmt.Errorf("create lead: id collisions exhausted retries")
}

// GetLead returns the lead or (nil, nil) when absent.
func (s *Store) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// LeadsByCampaign returns a campaign's leads ordered by descending score.
// Ties break on creation time then id so pagination is stable.
func (s *Store) LeadsByCampaign(ctx context.Context, campaignID string) ([]domain.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE campaign_id = $1
		 ORDER BY score DESC, created_at, id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("leads by campaign: %w", err)
	}
	return collectLeads(rows)
}

// LeadsByStatus returns all leads currently in the given status.
func (s *Store) LeadsByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid lead status %q", status)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE status = $1
		 ORDER BY score DESC, created_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("leads by status: %w", err)
	}
	return collectLeads(rows)
}

func collectLeads(rows *sql.Rows) ([]domain.Lead, error) {
	defer rows.Close()
	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// UpdateLeadScore sets a lead's score. Values outside [0,100] are rejected
// before any statement runs and leave the stored value unchanged.
func (s *Store) UpdateLeadScore(ctx context.Context, id string, score int) error {
	if score < 0 || score > 100 {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "leads_score_check",
			Err: fmt.Errorf("score %d outside [0,100]", score)}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET score = $1, updated_at = NOW() WHERE id = $2
	`, score, id)
	if err != nil {
		return fmt.Errorf("update lead score: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update lead score: lead %s not found", id)
	}
	return nil
}

// UpdateLeadStatus moves a lead through its lifecycle. Transitions into
// lost or invalid require a discard reason; disallowed transitions fail
// unless force is set (explicit operator override, e.g. reopening a lead).
func (s *Store) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus, discardReason string, force bool) error {
	if !status.Valid() {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "leads_status_check",
			Err: fmt.Errorf("invalid lead status %q", status)}
	}
	if lifecycle.RequiresDiscardReason(status) && discardReason == "" {
		return fmt.Errorf("update lead status: %s requires a discard reason", status)
	}

	var current domain.LeadStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM leads WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update lead status: lead %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if !force {
		if err := lifecycle.ValidateTransition(current, status); err != nil {
			return fmt.Errorf("update lead status: %w", err)
		}
	}

	if discardReason != "" {
		_, err = s.db.ExecContext(ctx, `
			UPDATE leads SET status = $1, discard_reason = $2, updated_at = NOW() WHERE id = $3
		`, status, discardReason, id)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2
		`, status, id)
	}
	if err != nil {
		return fmt.Errorf("update lead status: %w", classify(err))
	}
	return nil
}

// UpdateLeadNotes replaces a lead's free-text notes.
func (s *Store) UpdateLeadNotes(ctx context.Context, id, notes string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET notes = $1, updated_at = NOW() WHERE id = $2
	`, notes, id)
	if err != nil {
		return fmt.Errorf("update lead notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update lead notes: lead %s not found", id)
	}
	return nil
}

// UpdateLeadInsights persists the scoring collaborator's generated insights.
func (s *Store) UpdateLeadInsights(ctx context.Context, id, insights string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET insights = $1, updated_at = NOW() WHERE id = $2
	`, insights, id)
	if err != nil {
		return fmt.Errorf("update lead insights: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update lead insights: lead %s not found", id)
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
