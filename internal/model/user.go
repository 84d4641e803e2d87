package model

import "time"

// User represents a registered recycler.
//
// POINTS VS BALANCE:
// Points is the lifetime-earned accumulator. It only ever grows (deposits,
// claimed challenges, demo seeding) and is what badges, tiers and the
// leaderboard look at. Spending points on a voucher or a withdrawal does NOT
// touch Points; it increases SpentPoints instead. The spendable amount is
// Balance() = Points - SpentPoints.
//
// WHY GitHubID *int64?
// Most users register with email and password and never link GitHub.
// A nil pointer maps cleanly to a NULL column, and the UNIQUE constraint
// on github_id still guarantees one GitHub account per app account.
type User struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	GitHubID         *int64          `json:"githubId,omitempty"`
	Points           int             `json:"points"`
	SpentPoints      int             `json:"spentPoints"`
	CO2Saved         float64         `json:"co2Saved"` // kg
	FavoriteCategory DeviceType      `json:"favoriteCategory"`
	Badges           []Badge         `json:"badges"`
	RecyclingHistory []RecycleRecord `json:"recyclingHistory"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Balance returns the points the user can still redeem or withdraw.
func (u *User) Balance() int {
	b := u.Points - u.SpentPoints
	if b < 0 {
		return 0
	}
	return b
}

// BadgeNames returns the names of the badges the user already holds.
func (u *User) BadgeNames() []string {
	names := make([]string, 0, len(u.Badges))
	for _, b := range u.Badges {
		names = append(names, b.Name)
	}
	return names
}

// Credential is the login record for email/password accounts.
// Email is stored lower-cased and acts as the key.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
}

// Settings are small per-user UI preferences.
type Settings struct {
	HideSafetyCheck bool `json:"hideSafetyCheck"`
}
