package model

import "time"

// RewardData is the staging object between "disposal confirmed" and
// "session completed". It is frozen by ConfirmDisposal and committed to the
// user by CompleteSession.
type RewardData struct {
	Points         int            `json:"points"`
	Weight         float64        `json:"weight"` // kg
	MaterialBonus  float64        `json:"materialBonus"`
	NewBadges      []string       `json:"newBadges"`
	ValueBreakdown ValueBreakdown `json:"valueBreakdown"`
	ItemType       DeviceType     `json:"itemType"`
	CO2Saved       float64        `json:"co2Saved"`
}

// ScanSession is the per-user transient state of the scan pipeline.
type ScanSession struct {
	CurrentScan      *ClassificationResult `json:"currentScan"`
	CurrentCondition float64               `json:"currentCondition"`
	PendingReward    *RewardData           `json:"pendingReward"`
	BinID            string                `json:"binId,omitempty"`
}

// RedemptionKind says what the points were spent on.
type RedemptionKind string

const (
	RedemptionRedeem   RedemptionKind = "redeem"
	RedemptionWithdraw RedemptionKind = "withdraw"
)

// Redemption is one row in the append-only spending ledger.
type Redemption struct {
	ID        string         `json:"id"`
	UserID    string         `json:"-"`
	Kind      RedemptionKind `json:"kind"`
	OptionID  string         `json:"optionId"`
	Points    int            `json:"points"`
	Payout    float64        `json:"payout"` // currency units, withdrawals only
	CreatedAt time.Time      `json:"createdAt"`
}

// RewardTier is a named band of lifetime points.
// MaxPoints of the top tier is 0, meaning unbounded.
type RewardTier struct {
	Name      string `json:"name"`
	MinPoints int    `json:"minPoints"`
	MaxPoints int    `json:"maxPoints,omitempty"`
	Icon      string `json:"icon"`
}

// RedeemOption is a partner voucher that can be bought with points.
type RedeemOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ExchangeOption converts points to money at Rate per point.
type ExchangeOption struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rate        float64 `json:"rate"`
	MinPoints   int     `json:"minPoints"`
	Description string  `json:"description"`
}
