package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
)

// ListChallenges returns a user's challenges, soonest expiry first.
func (db *DB) ListChallenges(ctx context.Context, userID string) ([]model.Challenge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, description, type, goal, progress, reward, icon, expires_at, completed, claimed
		 FROM challenges WHERE user_id = ? ORDER BY expires_at, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing challenges for %s: %w", userID, err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		var c model.Challenge
		err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Type, &c.Goal, &c.Progress,
			&c.Reward, &c.Icon, &c.ExpiresAt, &c.Completed, &c.Claimed)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// ReplaceChallenges deletes the user's challenges and inserts the given set.
func (db *DB) ReplaceChallenges(ctx context.Context, userID string, challenges []model.Challenge) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM challenges WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("sqlite: clearing challenges for %s: %w", userID, err)
		}
		for _, c := range challenges {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO challenges (user_id, id, title, description, type, goal, progress, reward, icon, expires_at, completed, claimed)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				userID, c.ID, c.Title, c.Description, c.Type, c.Goal, c.Progress,
				c.Reward, c.Icon, c.ExpiresAt.UTC(), c.Completed, c.Claimed,
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting challenge %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// UpdateChallenge stores progress and the completed flag. Claimed is only
// ever set through ClaimChallenge.
func (db *DB) UpdateChallenge(ctx context.Context, userID string, c *model.Challenge) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE challenges SET progress = ?, completed = ? WHERE user_id = ? AND id = ?`,
		c.Progress, c.Completed, userID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating challenge %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("challenge", c.ID)
	}
	return nil
}

// ClaimChallenge flips claimed and credits the reward atomically. The
// conditional UPDATE makes a second claim a no-op, reported as a conflict.
func (db *DB) ClaimChallenge(ctx context.Context, userID, challengeID string, reward int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE challenges SET claimed = 1
			 WHERE user_id = ? AND id = ? AND completed = 1 AND claimed = 0`,
			userID, challengeID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: claiming challenge %s: %w", challengeID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return claimFailure(ctx, tx, userID, challengeID)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET points = points + ?, updated_at = ? WHERE id = ?`,
			reward, time.Now().UTC(), userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: crediting challenge reward: %w", err)
		}
		return nil
	})
}

// claimFailure explains why the conditional claim matched no row.
func claimFailure(ctx context.Context, tx *sql.Tx, userID, challengeID string) error {
	var completed, claimed bool
	err := tx.QueryRowContext(ctx,
		`SELECT completed, claimed FROM challenges WHERE user_id = ? AND id = ?`,
		userID, challengeID,
	).Scan(&completed, &claimed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound("challenge", challengeID)
	case err != nil:
		return fmt.Errorf("sqlite: reading challenge %s: %w", challengeID, err)
	case claimed:
		return apperror.Conflict("Reward already claimed")
	default:
		return apperror.ValidationFailed("challengeId", "Challenge is not completed yet")
	}
}
