package model

import "time"

// DefaultBinID is used when a deposit does not name a collection bin.
const DefaultBinID = "BIN-DEMO-001"

// RecycleRecord is one completed deposit. It is created once per completed
// scan session and never modified afterwards.
type RecycleRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"-"`
	ItemType     DeviceType `json:"itemType"`
	Weight       int        `json:"weight"` // grams
	PointsEarned int        `json:"pointsEarned"`
	DepositedAt  time.Time  `json:"depositedAt"`
	BinID        string     `json:"binId,omitempty"`
}

// Badge is a one-time achievement. A badge name appears at most once per user.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earnedAt"`
}
