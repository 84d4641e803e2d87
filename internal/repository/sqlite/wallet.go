package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
)

// Spend debits r.Points from the user's balance and appends r to the ledger.
// The balance check and the debit happen in one transaction.
func (db *DB) Spend(ctx context.Context, r *model.Redemption) error {
	if r.Points <= 0 {
		return apperror.ValidationFailed("points", "Amount must be positive")
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var points, spent int
		err := tx.QueryRowContext(ctx,
			`SELECT points, spent_points FROM users WHERE id = ?`, r.UserID,
		).Scan(&points, &spent)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("user", r.UserID)
			}
			return fmt.Errorf("sqlite: reading balance for %s: %w", r.UserID, err)
		}
		if points-spent < r.Points {
			return apperror.ValidationFailed("points", "Insufficient points")
		}

		now := time.Now().UTC()
		if r.ID == "" {
			r.ID = xid.New().String()
		}
		r.CreatedAt = now

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET spent_points = spent_points + ?, updated_at = ? WHERE id = ?`,
			r.Points, now, r.UserID,
		); err != nil {
			return fmt.Errorf("sqlite: debiting %s: %w", r.UserID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO redemptions (id, user_id, kind, option_id, points, payout, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.UserID, r.Kind, r.OptionID, r.Points, r.Payout, r.CreatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting redemption: %w", err)
		}
		return nil
	})
}

// ListRedemptions returns a user's ledger, newest first.
func (db *DB) ListRedemptions(ctx context.Context, userID string) ([]model.Redemption, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, kind, option_id, points, payout, created_at
		 FROM redemptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing redemptions for %s: %w", userID, err)
	}
	defer rows.Close()

	out := []model.Redemption{}
	for rows.Next() {
		var r model.Redemption
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.OptionID, &r.Points, &r.Payout, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning redemption: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSettings returns the user's settings, or the zero value if none saved.
func (db *DB) GetSettings(ctx context.Context, userID string) (model.Settings, error) {
	var s model.Settings
	err := db.conn.QueryRowContext(ctx,
		`SELECT hide_safety_check FROM settings WHERE user_id = ?`, userID,
	).Scan(&s.HideSafetyCheck)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("sqlite: reading settings for %s: %w", userID, err)
	}
	return s, nil
}

// SaveSettings upserts the user's settings.
func (db *DB) SaveSettings(ctx context.Context, userID string, s model.Settings) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO settings (user_id, hide_safety_check) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET hide_safety_check = excluded.hide_safety_check`,
		userID, s.HideSafetyCheck,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving settings for %s: %w", userID, err)
	}
	return nil
}
