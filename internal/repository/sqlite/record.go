package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

// ListRecords returns a user's deposits, most recent first.
func (db *DB) ListRecords(ctx context.Context, userID string, opts repository.ListOptions) ([]model.RecycleRecord, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if !opts.Since.IsZero() {
		where = append(where, "deposited_at >= ?")
		args = append(args, opts.Since.UTC())
	}

	query := `SELECT id, user_id, item_type, weight_grams, points_earned, deposited_at, bin_id
		FROM recycle_records WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY deposited_at DESC, id DESC`

	// SQLite needs a LIMIT for OFFSET; -1 means unbounded
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, opts.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing records for %s: %w", userID, err)
	}
	defer rows.Close()

	records := []model.RecycleRecord{}
	for rows.Next() {
		var r model.RecycleRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemType, &r.Weight, &r.PointsEarned, &r.DepositedAt, &r.BinID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListBadges returns a user's badges in the order they were earned.
func (db *DB) ListBadges(ctx context.Context, userID string) ([]model.Badge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description, icon, earned_at FROM badges
		 WHERE user_id = ? ORDER BY earned_at, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing badges for %s: %w", userID, err)
	}
	defer rows.Close()

	badges := []model.Badge{}
	for rows.Next() {
		var b model.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// ApplyCredit appends records and badges and bumps the accumulators in one
// transaction. Missing IDs are generated. A badge whose name the user already
// holds is skipped (UNIQUE(user_id, name) + INSERT OR IGNORE) and left out of
// the returned slice.
func (db *DB) ApplyCredit(ctx context.Context, c repository.Credit) ([]model.Badge, error) {
	if c.Points < 0 || c.CO2 < 0 {
		return nil, apperror.ValidationFailed("points", "credit cannot be negative")
	}

	var stored []model.Badge
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stored = make([]model.Badge, 0, len(c.Badges))
		now := time.Now().UTC()

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points + ?, co2_saved = co2_saved + ?, updated_at = ? WHERE id = ?`,
			c.Points, c.CO2, now, c.UserID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: crediting user %s: %w", c.UserID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.NotFound("user", c.UserID)
		}

		for i := range c.Records {
			r := &c.Records[i]
			if r.ID == "" {
				r.ID = xid.New().String()
			}
			if r.DepositedAt.IsZero() {
				r.DepositedAt = now
			}
			r.UserID = c.UserID
			_, err := tx.ExecContext(ctx,
				`INSERT INTO recycle_records (id, user_id, item_type, weight_grams, points_earned, deposited_at, bin_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.ID, r.UserID, r.ItemType, r.Weight, r.PointsEarned, r.DepositedAt.UTC(), r.BinID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting record: %w", err)
			}
		}

		for i := range c.Badges {
			b := &c.Badges[i]
			if b.ID == "" {
				b.ID = xid.New().String()
			}
			if b.EarnedAt.IsZero() {
				b.EarnedAt = now
			}
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO badges (id, user_id, name, description, icon, earned_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				b.ID, c.UserID, b.Name, b.Description, b.Icon, b.EarnedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting badge %q: %w", b.Name, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("sqlite: inserting badge %q: %w", b.Name, err)
			} else if n == 1 {
				stored = append(stored, *b)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}
