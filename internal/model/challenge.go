package model

import "time"

// ChallengeType is the time box a challenge runs in.
type ChallengeType string

const (
	ChallengeDaily   ChallengeType = "daily"
	ChallengeWeekly  ChallengeType = "weekly"
	ChallengeMonthly ChallengeType = "monthly"
)

// Challenge IDs are stable: progress events address challenges by ID and a
// sweep regenerates the same set.
const (
	ChallengeDailyScan     = "daily-scan-1"
	ChallengeDailyPoints   = "daily-points-100"
	ChallengeWeeklyItems   = "weekly-items-5"
	ChallengeWeeklyStreak  = "weekly-streak-3"
	ChallengeMonthlyPoints = "monthly-points-1000"
)

// Challenge is a time-boxed goal with its own progress and reward.
//
// STATE MACHINE:
//
//	Active (progress < goal) → Completed (progress >= goal) → Claimed
//
// Expired challenges are removed by a sweep and replaced with fresh copies.
type Challenge struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        ChallengeType `json:"type"`
	Goal        int           `json:"goal"`
	Progress    int           `json:"progress"`
	Reward      int           `json:"reward"` // points
	Icon        string        `json:"icon"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Completed   bool          `json:"completed"`
	Claimed     bool          `json:"claimed"`
}

// Expired reports whether the challenge expired before now.
func (c *Challenge) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
