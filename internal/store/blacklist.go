package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/shortid"
)

// execer covers *sql.DB and *sql.Tx for statements shared between the
// public insert and the in-transaction bounce reaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertBlacklistTx(ctx context.Context, e execer, email string, reason domain.BlacklistReason, campaignID sql.NullString) error {
	if !reason.Valid() {
		return &ConstraintError{Kind: ConstraintCheck, Constraint: "blacklist_reason_check",
			Err: fmt.Errorf("invalid blacklist reason %q", reason)}
	}
	var cid interface{}
	if campaignID.Valid {
		cid = campaignID.String
	}
	// Duplicate addresses are a successful no-op, never an error.
	_, err := e.ExecContext(ctx, `
		INSERT INTO blacklist (id, email, reason, campaign_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, shortid.New(), domain.NormalizeEmail(email), reason, cid)
	if err != nil {
		return classify(err)
	}
	return nil
}

// AddToBlacklist permanently suppresses an address. The insert is
// idempotent and the in-process cache reflects the suppression immediately,
// so a just-added address can never be contacted inside the TTL window.
func (s *Store) AddToBlacklist(ctx context.Context, email string, reason domain.BlacklistReason, campaignID string) error {
	if email == "" {
		return fmt.Errorf("add to blacklist: email is required")
	}
	cid := sql.NullString{String: campaignID, Valid: campaignID != ""}
	if err := insertBlacklistTx(ctx, s.db, email, reason, cid); err != nil {
		return fmt.Errorf("add to blacklist: %w", err)
	}
	s.blacklist.Add(domain.NormalizeEmail(email))
	return nil
}

// RemoveFromBlacklist deletes a suppression (explicit removal is the only
// sanctioned delete on this table) and updates the cache.
func (s *Store) RemoveFromBlacklist(ctx context.Context, email string) error {
	norm := domain.NormalizeEmail(email)
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE email = $1`, norm)
	if err != nil {
		return fmt.Errorf("remove from blacklist: %w", err)
	}
	s.blacklist.Remove(norm)
	return nil
}

// IsBlacklisted reports membership through the TTL cache, refreshing the
// full set from the store when stale. The refresh swaps the set atomically.
func (s *Store) IsBlacklisted(ctx context.Context, email string) (bool, error) {
	norm := domain.NormalizeEmail(email)
	if !s.blacklist.Valid() {
		if err := s.refreshBlacklistCache(ctx); err != nil {
			return false, err
		}
	}
	return s.blacklist.Contains(norm), nil
}

func (s *Store) refreshBlacklistCache(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT email FROM blacklist`)
	if err != nil {
		return fmt.Errorf("refresh blacklist cache: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return fmt.Errorf("refresh blacklist cache: scan: %w", err)
		}
		set[email] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("refresh blacklist cache: %w", err)
	}
	s.blacklist.Replace(set)
	return nil
}

// Blacklist returns every suppression, most recent first.
func (s *Store) Blacklist(ctx context.Context) ([]domain.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(domain,''), reason, campaign_id, added_at
		FROM blacklist ORDER BY added_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	var out []domain.BlacklistEntry
	for rows.Next() {
		var b domain.BlacklistEntry
		if err := rows.Scan(&b.ID, &b.Email, &b.Domain, &b.Reason, &b.CampaignID, &b.AddedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
