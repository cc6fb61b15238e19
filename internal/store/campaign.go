package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/shortid"
)

// CreateCampaign inserts a new campaign and returns its generated id.
func (s *Store) CreateCampaign(ctx context.Context, name, region, description string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("campaign name is required")
	}
	for attempt := 0; attempt < 3; attempt++ {
		id := shortid.New()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO campaigns (id, name, region, description, status)
			VALUES ($1, $2, $3, $4, 'pending')
		`, id, name, region, description)
		if err == nil {
			return id, nil
		}
		err = classify(err)
		if IsConstraint(err, ConstraintUnique) {
			continue // id collision, retry with a fresh one
		}
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return "", fmt.Errorf("create campaign: id collisions exhausted retries")
}

// GetCampaign returns the campaign or (nil, nil) when absent.
func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(region,''), COALESCE(description,''), status,
		       total_leads, emails_sent, emails_failed, created_at, updated_at
		FROM campaigns WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.Region, &c.Description, &c.Status,
		&c.TotalLeads, &c.EmailsSent, &c.EmailsFailed, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns returns every campaign, most recent first.
func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(region,''), COALESCE(description,''), status,
		       total_leads, emails_sent, emails_failed, created_at, updated_at
		FROM campaigns ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Region, &c.Description, &c.Status,
			&c.TotalLeads, &c.EmailsSent, &c.EmailsFailed, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CampaignStatsUpdate names the counter fields a partial update may touch.
// Nil fields are left unchanged.
type CampaignStatsUpdate struct {
	TotalLeads   *int
	EmailsSent   *int
	EmailsFailed *int
	Status       *domain.CampaignStatus
}

// UpdateCampaignStats applies a partial update to the campaign counters and
// status, refreshing updated_at.
func (s *Store) UpdateCampaignStats(ctx context.Context, id string, u CampaignStatsUpdate) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.TotalLeads != nil {
		add("total_leads", *u.TotalLeads)
	}
	if u.EmailsSent != nil {
		add("emails_sent", *u.EmailsSent)
	}
	if u.EmailsFailed != nil {
		add("emails_failed", *u.EmailsFailed)
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return fmt.Errorf("invalid campaign status %q", *u.Status)
		}
		add("status", string(*u.Status))
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE campaigns SET %s WHERE id = $%d", strings.Join(sets, ", "), idx)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign stats: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update campaign stats: campaign %s not found", id)
	}
	return nil
}

// UpdateCampaignStatus moves the campaign lifecycle status.
func (s *Store) UpdateCampaignStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid campaign status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update campaign status: campaign %s not found", id)
	}
	return nil
}

// RefreshCampaignCounters recomputes the three running counters from the
// underlying rows in a single set-based statement, so the operation is
// safe to retry and never drifts from the truth. emails_sent counts
// attempts that reached the provider (including those later bounced or
// rejected); emails_failed counts attempts that failed before delivery.
func (s *Store) RefreshCampaignCounters(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, refreshCountersSQL, id)
	if err != nil {
		return fmt.Errorf("refresh campaign counters: %w", err)
	}
	return nil
}

const refreshCountersSQL = `
	UPDATE campaigns SET
		total_leads = (SELECT COUNT(*) FROM leads WHERE campaign_id = $1),
		emails_sent = (SELECT COUNT(*) FROM email_log
			WHERE campaign_id = $1 AND status IN ('sent','bounced','rejected')),
		emails_failed = (SELECT COUNT(*) FROM email_log
			WHERE campaign_id = $1 AND status = 'failed'),
		updated_at = NOW()
	WHERE id = $1`

// DeleteCampaign removes a campaign. Its leads cascade away; email log rows
// survive with nulled foreign keys.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete campaign: campaign %s not found", id)
	}
	return nil
}

// CampaignSummary recomputes the aggregate read model for one campaign
// directly from the underlying rows. Returns (nil, nil) when the campaign
// does not exist.
func (s *Store) CampaignSummary(ctx context.Context, id string) (*domain.CampaignSummary, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	sum := &domain.CampaignSummary{Campaign: *c}
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM leads WHERE campaign_id = $1),
			(SELECT COUNT(*) FROM leads WHERE campaign_id = $1 AND status = 'contacted'),
			(SELECT COUNT(*) FROM email_log WHERE campaign_id = $1 AND status IN ('sent','bounced','rejected')),
			(SELECT COUNT(*) FROM email_log WHERE campaign_id = $1 AND status = 'failed'),
			(SELECT COUNT(*) FROM email_log WHERE campaign_id = $1 AND status = 'bounced'),
			(SELECT COALESCE(AVG(score), 0) FROM leads WHERE campaign_id = $1)
	`, id).Scan(
		&sum.LeadCount, &sum.ContactedLeads, &sum.EmailsSent,
		&sum.EmailsFailed, &sum.EmailsBounced, &sum.AverageScore,
	)
	if err != nil {
		return nil, fmt.Errorf("campaign summary: %w", err)
	}
	return sum, nil
}
