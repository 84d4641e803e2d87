// Package repository declares the persistence interfaces the services depend
// on. Implementations live in sub-packages (sqlite, redis); services only
// ever see these interfaces, which keeps them testable with in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/ecocycle/internal/model"
)

// ListOptions bounds a history query. Zero values mean "no limit" and
// "from the beginning of time".
type ListOptions struct {
	Limit  int
	Offset int
	Since  time.Time
}

// Credit is a batch of earnings applied to one user atomically: either every
// record, badge and accumulator change is stored, or none is.
type Credit struct {
	UserID  string
	Records []model.RecycleRecord
	Points  int
	CO2     float64
	// Badges whose name the user already holds are skipped.
	Badges []model.Badge
}

type UserRepository interface {
	// CreateUser inserts a user and, when cred is non-nil, its login
	// credential. A duplicate email is reported as apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User, cred *model.Credential) error
	// GetUser returns the user with accumulators but without badges or
	// history; use the record/badge methods for those.
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetCredential(ctx context.Context, email string) (*model.Credential, error)
	// UpsertGitHubUser finds the user by GitHub ID, then by email (linking
	// the GitHub ID), and otherwise creates it.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type RecordRepository interface {
	// ListRecords returns a user's deposits, most recent first.
	ListRecords(ctx context.Context, userID string, opts ListOptions) ([]model.RecycleRecord, error)
	ListBadges(ctx context.Context, userID string) ([]model.Badge, error)
	// ApplyCredit stores a Credit in a single transaction and returns the
	// badges it inserted, leaving out names the user already held.
	ApplyCredit(ctx context.Context, c Credit) ([]model.Badge, error)
}

type ChallengeRepository interface {
	ListChallenges(ctx context.Context, userID string) ([]model.Challenge, error)
	// ReplaceChallenges swaps the user's whole challenge set.
	ReplaceChallenges(ctx context.Context, userID string, challenges []model.Challenge) error
	UpdateChallenge(ctx context.Context, userID string, c *model.Challenge) error
	// ClaimChallenge marks a completed, unclaimed challenge as claimed and
	// credits reward points in one transaction. It returns
	// apperror.ErrConflict if the challenge was claimed concurrently.
	ClaimChallenge(ctx context.Context, userID, challengeID string, reward int) error
}

type WalletRepository interface {
	// Spend records a redemption and debits the balance. It fails with
	// apperror.ErrValidation if the balance is too low.
	Spend(ctx context.Context, r *model.Redemption) error
	ListRedemptions(ctx context.Context, userID string) ([]model.Redemption, error)
}

type SettingsRepository interface {
	// GetSettings returns zero-value settings for users who never saved any.
	GetSettings(ctx context.Context, userID string) (model.Settings, error)
	SaveSettings(ctx context.Context, userID string, s model.Settings) error
}

type LeaderboardRepository interface {
	// LeaderboardRows returns one unranked row per user with activity since
	// the given time. A zero time ranks lifetime points of every user.
	LeaderboardRows(ctx context.Context, since time.Time) ([]model.LeaderboardEntry, error)
}

// LeaderboardCache is an optional fast path for the all-time ranking.
type LeaderboardCache interface {
	SetScore(ctx context.Context, entry model.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	Entry(ctx context.Context, userID string) (*model.LeaderboardEntry, error)
}

// Store is everything the SQLite database provides.
type Store interface {
	UserRepository
	RecordRepository
	ChallengeRepository
	WalletRepository
	SettingsRepository
	LeaderboardRepository
}
