package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/ecocycle/internal/model"
)

// LeaderboardRows aggregates points and item counts per user.
//
// With a zero since, Points is the lifetime total from users.points (which
// includes challenge rewards and demo bonuses) and every user is listed.
// Otherwise Points sums the deposits inside the window and only users with
// at least one deposit are listed.
func (db *DB) LeaderboardRows(ctx context.Context, since time.Time) ([]model.LeaderboardEntry, error) {
	var (
		query string
		args  []any
	)
	if since.IsZero() {
		query = `SELECT u.id, u.name, u.points,
				(SELECT COUNT(*) FROM recycle_records r WHERE r.user_id = u.id)
			 FROM users u`
	} else {
		query = `SELECT u.id, u.name, SUM(r.points_earned), COUNT(r.id)
			 FROM recycle_records r JOIN users u ON u.id = r.user_id
			 WHERE r.deposited_at >= ?
			 GROUP BY u.id, u.name`
		args = append(args, since.UTC())
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: leaderboard query: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.UserName, &e.Points, &e.ItemsRecycled); err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
