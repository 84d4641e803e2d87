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
	"github.com/sakif/ecocycle/internal/repository"
)

// compile-time check that *DB implements the full store
var _ repository.Store = (*DB)(nil)

const userColumns = `id, name, email, github_id, points, spent_points, co2_saved, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.GitHubID,
		&u.Points,
		&u.SpentPoints,
		&u.CO2Saved,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and optional credential in one transaction.
// The user's ID and timestamps are filled in.
func (db *DB) CreateUser(ctx context.Context, user *model.User, cred *model.Credential) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, user.Email).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking email: %w", err)
		}
		if exists > 0 {
			return apperror.Conflict("Email already registered")
		}

		now := time.Now().UTC()
		user.ID = xid.New().String()
		user.CreatedAt = now
		user.UpdatedAt = now

		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}

		if cred != nil {
			cred.UserID = user.ID
			_, err := tx.ExecContext(ctx,
				`INSERT INTO credentials (email, user_id, password_hash) VALUES (?, ?, ?)`,
				cred.Email, cred.UserID, cred.PasswordHash,
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting credential for %s: %w", user.ID, err)
			}
		}
		return nil
	})
}

func insertUser(ctx context.Context, tx *sql.Tx, user *model.User) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.GitHubID,
		user.Points,
		user.SpentPoints,
		user.CO2Saved,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUser retrieves a user by ID. Returns apperror.ErrNotFound if missing.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetCredential looks up a login credential by (lower-cased) email.
func (db *DB) GetCredential(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential
	err := db.conn.QueryRowContext(ctx,
		`SELECT email, user_id, password_hash FROM credentials WHERE email = ?`, email,
	).Scan(&c.Email, &c.UserID, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("credential", email)
		}
		return nil, fmt.Errorf("sqlite: getting credential: %w", err)
	}
	return &c, nil
}

// UpsertGitHubUser resolves a GitHub login to an account.
//
// Lookup order:
//  1. by github_id → refresh the display name
//  2. by email     → link the GitHub ID to the existing email account
//  3. otherwise    → create a new account
//
// On return user holds the stored row.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("githubId", "GitHub ID is required")
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()

		existing, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID,
		))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlite: looking up github user %d: %w", *user.GitHubID, err)
		}

		byGitHub := existing != nil
		if existing == nil && user.Email != "" {
			existing, err = scanUser(tx.QueryRowContext(ctx,
				`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email,
			))
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("sqlite: looking up user by email: %w", err)
			}
		}

		if existing == nil {
			user.ID = xid.New().String()
			user.CreatedAt = now
			user.UpdatedAt = now
			return insertUser(ctx, tx, user)
		}

		// an email account keeps the name it registered with
		if byGitHub && user.Name != "" {
			existing.Name = user.Name
		}
		existing.GitHubID = user.GitHubID
		existing.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET github_id = ?, name = ?, updated_at = ? WHERE id = ?`,
			*existing.GitHubID, existing.Name, now, existing.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: linking github user %s: %w", existing.ID, err)
		}

		*user = *existing
		return nil
	})
}

// ListUserIDs returns every user ID, oldest account first.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
