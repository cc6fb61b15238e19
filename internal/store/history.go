package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/abaplay/outreach/internal/domain"
)

// EmailsSentToday returns the number of emails that reached status sent
// during the current calendar day. The value is served from the daily cache
// when fresh; a stale or other-day entry triggers a recount. A send in this
// process updates the cache directly, so the daily cap cannot be overrun by
// staleness.
func (s *Store) EmailsSentToday(ctx context.Context) (int, error) {
	today := s.today()
	if n, ok := s.daily.Get(today); ok {
		return n, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM email_log
		WHERE status = 'sent' AND sent_at >= $1
	`, s.startOfDay()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("emails sent today: %w", err)
	}
	s.daily.Set(today, n)
	return n, nil
}

// SentRecently returns the most recent successful send to an address within
// the lookback window, joined with the lead and campaign names, or
// (nil, nil) when none exists. Comparison is case-insensitive.
func (s *Store) SentRecently(ctx context.Context, email string, days int) (*domain.EmailLogEntry, error) {
	if email == "" {
		return nil, nil
	}
	e := &domain.EmailLogEntry{}
	err := s.db.QueryRowContext(ctx, `
		SELECT el.id, el.lead_id, el.campaign_id, el.recipient,
		       COALESCE(el.subject,''), el.status, el.attempt_number,
		       el.sent_at, el.created_at,
		       COALESCE(l.clinic_name,''), COALESCE(c.name,'')
		FROM email_log el
		LEFT JOIN leads l ON el.lead_id = l.id
		LEFT JOIN campaigns c ON el.campaign_id = c.id
		WHERE LOWER(el.recipient) = $1
		  AND el.status = 'sent'
		  AND el.sent_at >= NOW() - make_interval(days => $2)
		ORDER BY el.sent_at DESC
		LIMIT 1
	`, domain.NormalizeEmail(email), days).Scan(
		&e.ID, &e.LeadID, &e.CampaignID, &e.Recipient,
		&e.Subject, &e.Status, &e.AttemptNumber,
		&e.SentAt, &e.CreatedAt,
		&e.LeadName, &e.CampaignName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sent recently: %w", err)
	}
	return e, nil
}

// FilterRecentlyContacted returns the subset of candidate addresses that
// already have a sent log entry inside the lookback window. Input and
// output are lowercased; the returned set drives batch duplicate detection
// before ingesting new leads.
func (s *Store) FilterRecentlyContacted(ctx context.Context, emails []string, days int) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(emails) == 0 {
		return out, nil
	}
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if e != "" {
			normalized = append(normalized, domain.NormalizeEmail(e))
		}
	}
	if len(normalized) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT LOWER(recipient) FROM email_log
		WHERE LOWER(recipient) = ANY($1)
		  AND status = 'sent'
		  AND sent_at >= NOW() - make_interval(days => $2)
	`, pq.StringArray(normalized), days)
	if err != nil {
		return nil, fmt.Errorf("filter recently contacted: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan duplicate email: %w", err)
		}
		out[email] = true
	}
	return out, rows.Err()
}

// EmailHistory returns every send attempt to an address, most recent first,
// joined with lead and campaign names.
func (s *Store) EmailHistory(ctx context.Context, email string) ([]domain.EmailLogEntry, error) {
	if email == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT el.id, el.lead_id, el.campaign_id, el.recipient,
		       COALESCE(el.subject,''), el.status, el.attempt_number,
		       COALESCE(el.error_message,''), el.sent_at, el.created_at,
		       COALESCE(l.clinic_name,''), COALESCE(c.name,'')
		FROM email_log el
		LEFT JOIN leads l ON el.lead_id = l.id
		LEFT JOIN campaigns c ON el.campaign_id = c.id
		WHERE LOWER(el.recipient) = $1
		ORDER BY el.created_at DESC, el.id
	`, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("email history: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailLogEntry
	for rows.Next() {
		var e domain.EmailLogEntry
		if err := rows.Scan(
			&e.ID, &e.LeadID, &e.CampaignID, &e.Recipient,
			&e.Subject, &e.Status, &e.AttemptNumber,
			&e.ErrorMessage, &e.SentAt, &e.CreatedAt,
			&e.LeadName, &e.CampaignName,
		); err != nil {
			return nil, fmt.Errorf("scan email history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DailySendCounts returns per-day sent totals over the trailing window, in
// chronological order. Days without sends are simply absent. Bucketing by
// day happens here rather than in SQL so the day boundary is the process
// time zone, the same boundary EmailsSentToday and the daily cache use.
func (s *Store) DailySendCounts(ctx context.Context, days int) ([]domain.DailyCount, error) {
	start := s.startOfDay().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT sent_at FROM email_log
		WHERE status = 'sent' AND sent_at >= $1
		ORDER BY sent_at
	`, start)
	if err != nil {
		return nil, fmt.Errorf("daily send counts: %w", err)
	}
	defer rows.Close()

	loc := s.now().Location()
	var out []domain.DailyCount
	for rows.Next() {
		var sentAt time.Time
		if err := rows.Scan(&sentAt); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		local := sentAt.In(loc)
		y, m, d := local.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Count++
		} else {
			out = append(out, domain.DailyCount{Day: day, Count: 1})
		}
	}
	return out, rows.Err()
}
