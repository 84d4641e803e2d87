package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
	"github.com/sakif/ecocycle/internal/valuation"
)

// Equivalence factors and the community averages used for comparison.
const (
	co2PerTreeKg     = 20  // one tree absorbs ~20 kg CO2 a year
	waterPerItemL    = 50  // litres saved per device
	energyPerItemKWh = 15  // kWh saved per device
	trendCO2PerKg    = 2.5 // kg CO2 per kg of e-waste in the trend chart
	averageItems     = 8
	averageCO2Kg     = 15
	trendDays        = 7
)

// ImpactService builds the environmental-impact dashboard.
type ImpactService struct {
	users   repository.UserRepository
	records repository.RecordRepository
	loc     *time.Location
	now     func() time.Time
}

// NewImpactService creates the service. Trend days are bucketed in loc, which
// defaults to UTC.
func NewImpactService(store repository.Store, loc *time.Location) *ImpactService {
	if loc == nil {
		loc = time.UTC
	}
	return &ImpactService{users: store, records: store, loc: loc, now: time.Now}
}

// Report computes the dashboard for a user.
func (s *ImpactService) Report(ctx context.Context, userID string) (*model.ImpactReport, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/impact: loading user %s: %w", userID, err)
	}
	history, err := s.records.ListRecords(ctx, userID, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("service/impact: loading history: %w", err)
	}
	return BuildImpact(user.CO2Saved, history, s.now().In(s.loc)), nil
}

// BuildImpact derives the report from the CO2 accumulator and the full
// deposit history. The trend covers the seven calendar days ending today in
// now's location.
func BuildImpact(co2Saved float64, history []model.RecycleRecord, now time.Time) *model.ImpactReport {
	items := len(history)
	report := &model.ImpactReport{
		CO2Saved:        co2Saved,
		TreesEquivalent: int(math.Round(co2Saved / co2PerTreeKg)),
		WaterSaved:      items * waterPerItemL,
		EnergySaved:     items * energyPerItemKWh,
		ItemsRecycled:   items,
		VsAverageItems:  items - averageItems,
		VsAverageCO2:    valuation.Round2(co2Saved - averageCO2Kg),
	}

	type bucket struct {
		co2    float64
		items  int
		points int
	}
	loc := now.Location()
	days := make(map[string]*bucket, trendDays)
	keys := make([]time.Time, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		keys = append(keys, d)
		days[d.Format(time.DateOnly)] = &bucket{}
	}

	counts := make(map[model.DeviceType]*model.CategoryStat)
	var order []model.DeviceType
	for _, r := range history {
		if b, ok := days[r.DepositedAt.In(loc).Format(time.DateOnly)]; ok {
			b.co2 += float64(r.Weight) / 1000 * trendCO2PerKg
			b.items++
			b.points += r.PointsEarned
		}

		stat, ok := counts[r.ItemType]
		if !ok {
			stat = &model.CategoryStat{Category: r.ItemType}
			counts[r.ItemType] = stat
			order = append(order, r.ItemType)
		}
		stat.Count++
		stat.Points += r.PointsEarned
	}

	report.Trend = make([]model.TrendPoint, 0, trendDays)
	for _, d := range keys {
		b := days[d.Format(time.DateOnly)]
		report.Trend = append(report.Trend, model.TrendPoint{
			Day:    d.Format("Mon"),
			Date:   d.Format("Jan 2"),
			CO2:    valuation.Round1(b.co2),
			Items:  b.items,
			Points: b.points,
		})
	}

	report.Categories = make([]model.CategoryStat, 0, len(order))
	for _, t := range order {
		report.Categories = append(report.Categories, *counts[t])
	}
	return report
}

// FavoriteCategory is the most frequent device type in the history, ties
// going to the type that reached the count first. An empty history yields smartphone.
func FavoriteCategory(history []model.RecycleRecord) model.DeviceType {
	if len(history) == 0 {
		return model.DeviceSmartphone
	}
	counts := make(map[model.DeviceType]int)
	best, bestN := model.DeviceSmartphone, 0
	for _, r := range history {
		counts[r.ItemType]++
		if n := counts[r.ItemType]; n > bestN {
			best, bestN = r.ItemType, n
		}
	}
	return best
}
