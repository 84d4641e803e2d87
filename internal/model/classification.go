package model

// ClassificationResult is what the classifier returns for one scan.
// It is transient: it lives in the user's scan session and is never persisted.
//
// The two flags partition confidence into three handling modes:
//
//	confidence > 85        → IsAutoAccept      (no confirmation needed)
//	70 <= confidence <= 85 → NeedsConfirmation (user confirms the type)
//	confidence < 70        → neither           (user picks the type manually)
type ClassificationResult struct {
	DeviceType        DeviceType       `json:"deviceType"`
	Confidence        int              `json:"confidence"` // 0-100
	SuggestedCategory MaterialCategory `json:"suggestedCategory"`
	EstimatedWeight   float64          `json:"estimatedWeight"` // kg
	BaseValue         float64          `json:"baseValue"`       // currency units
	IsAutoAccept      bool             `json:"isAutoAccept"`
	NeedsConfirmation bool             `json:"needsConfirmation"`
}

// ValueBreakdown holds the intermediate factors of a valuation.
// Every field is derived; it has no identity of its own.
type ValueBreakdown struct {
	BaseValue           float64 `json:"baseValue"`
	MaterialBonus       float64 `json:"materialBonus"`
	RarityMultiplier    float64 `json:"rarityMultiplier"`
	ConditionMultiplier float64 `json:"conditionMultiplier"`
	FinalValue          float64 `json:"finalValue"`
}

// Detection is a single (label, confidence) pair produced by an
// object-detection model.
type Detection struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
}
