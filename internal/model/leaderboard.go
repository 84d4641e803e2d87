package model

// LeaderboardPeriod selects the window a leaderboard ranks over.
type LeaderboardPeriod string

const (
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
	PeriodAllTime LeaderboardPeriod = "allTime"
)

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	Points        int    `json:"points"`
	ItemsRecycled int    `json:"itemsRecycled"`
	Rank          int    `json:"rank"`
}

// Leaderboard is a ranked list plus the caller's own position.
type Leaderboard struct {
	Period  LeaderboardPeriod  `json:"period"`
	Entries []LeaderboardEntry `json:"entries"`
	Me      *LeaderboardEntry  `json:"me,omitempty"`
}

// TrendPoint is one day of the impact trend chart.
type TrendPoint struct {
	Day    string  `json:"day"`  // short weekday, e.g. "Mon"
	Date   string  `json:"date"` // e.g. "Oct 17"
	CO2    float64 `json:"co2"`
	Items  int     `json:"items"`
	Points int     `json:"points"`
}

// CategoryStat aggregates history by device type.
type CategoryStat struct {
	Category DeviceType `json:"category"`
	Count    int        `json:"count"`
	Points   int        `json:"points"`
}

// ImpactReport is the environmental-impact dashboard for one user.
type ImpactReport struct {
	CO2Saved        float64        `json:"co2Saved"`
	TreesEquivalent int            `json:"treesEquivalent"`
	WaterSaved      int            `json:"waterSaved"`  // litres
	EnergySaved     int            `json:"energySaved"` // kWh
	ItemsRecycled   int            `json:"itemsRecycled"`
	Trend           []TrendPoint   `json:"trend"`
	Categories      []CategoryStat `json:"categories"`
	VsAverageItems  int            `json:"vsAverageItems"`
	VsAverageCO2    float64        `json:"vsAverageCo2"`
}
