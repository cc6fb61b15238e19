package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"

	"github.com/abaplay/outreach/internal/domain"
)

// GetSetting returns the persisted value for key, falling back to the
// compiled default only when no row exists. The persisted row is the single
// source of truth for tunables.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		if def, ok := domain.DefaultSettings[key]; ok {
			return def, nil
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// IntSetting parses the setting as an integer, falling back when the key is
// absent or the stored value does not parse.
func (s *Store) IntSetting(ctx context.Context, key string, fallback int) (int, error) {
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[store] setting %s=%q is not an integer, using %d", key, value, fallback)
		return fallback, nil
	}
	return n, nil
}

// PutSetting upserts one configuration row.
func (s *Store) PutSetting(ctx context.Context, key, value, description string) error {
	if key == "" {
		return fmt.Errorf("put setting: key is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, description, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    description = COALESCE(NULLIF(EXCLUDED.description,''), settings.description),
		    updated_at = NOW()
	`, key, value, description)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// ListSettings returns every configuration row ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, COALESCE(description,''), updated_at
		FROM settings ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []domain.Setting
	for rows.Next() {
		var st domain.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Description, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
