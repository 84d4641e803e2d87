package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ecocycle/internal/model"
)

func rec(device model.DeviceType, grams, points int, at time.Time) model.RecycleRecord {
	return model.RecycleRecord{ItemType: device, Weight: grams, PointsEarned: points, DepositedAt: at}
}

func TestBuildImpact(t *testing.T) {
	// Saturday 2026-10-17, 15:00 UTC
	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	history := []model.RecycleRecord{
		rec(model.DeviceSmartphone, 180, 27, now.Add(-time.Hour)),
		rec(model.DeviceLaptop, 2100, 315, now.AddDate(0, 0, -1)),
		rec(model.DeviceSmartphone, 200, 30, now.AddDate(0, 0, -6)),
		rec(model.DeviceBattery, 50, 6, now.AddDate(0, 0, -20)), // outside the trend
	}

	r := BuildImpact(41, history, now)

	assert.Equal(t, 2, r.TreesEquivalent)
	assert.Equal(t, 4, r.ItemsRecycled)
	assert.Equal(t, 200, r.WaterSaved)
	assert.Equal(t, 60, r.EnergySaved)
	assert.Equal(t, -4, r.VsAverageItems)
	assert.Equal(t, 26.0, r.VsAverageCO2)

	require.Len(t, r.Trend, 7)
	assert.Equal(t, "Sun", r.Trend[0].Day)
	assert.Equal(t, "Oct 11", r.Trend[0].Date)
	assert.Equal(t, 1, r.Trend[0].Items)
	assert.Equal(t, 0.5, r.Trend[0].CO2)

	assert.Equal(t, "Sat", r.Trend[6].Day)
	assert.Equal(t, 27, r.Trend[6].Points)
	assert.Equal(t, 0.5, r.Trend[6].CO2)
	assert.Equal(t, 5.3, r.Trend[5].CO2)
	assert.Zero(t, r.Trend[3].Items)

	assert.Equal(t, []model.CategoryStat{
		{Category: model.DeviceSmartphone, Count: 2, Points: 57},
		{Category: model.DeviceLaptop, Count: 1, Points: 315},
		{Category: model.DeviceBattery, Count: 1, Points: 6},
	}, r.Categories)
}

func TestBuildImpact_Empty(t *testing.T) {
	r := BuildImpact(0, nil, time.Now())
	assert.Len(t, r.Trend, 7)
	assert.NotNil(t, r.Categories)
	assert.Empty(t, r.Categories)
	assert.Equal(t, -15.0, r.VsAverageCO2)
}

func TestFavoriteCategory(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		history []model.RecycleRecord
		want    model.DeviceType
	}{
		{"empty", nil, model.DeviceSmartphone},
		{"majority", []model.RecycleRecord{
			rec(model.DeviceLaptop, 1, 1, now),
			rec(model.DeviceBattery, 1, 1, now),
			rec(model.DeviceBattery, 1, 1, now),
		}, model.DeviceBattery},
		{"tie goes to first to reach the count", []model.RecycleRecord{
			rec(model.DeviceCable, 1, 1, now),
			rec(model.DeviceCharger, 1, 1, now),
		}, model.DeviceCable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FavoriteCategory(tt.history))
		})
	}
}

func TestImpactService_Report(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	store.users[u.ID].CO2Saved = 8.1
	store.records[u.ID] = []model.RecycleRecord{rec(model.DeviceSmartphone, 180, 27, time.Now())}

	r, err := NewImpactService(store, nil).Report(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.ItemsRecycled)
	assert.Equal(t, 8.1, r.CO2Saved)
	assert.Equal(t, 0, r.TreesEquivalent)
}

func TestImpactService_ReportBucketsInLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	// 22:30 on the 14th in IST; the report is built at 01:00 on the 15th.
	deposit := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		loc       *time.Location
		lastDate  string
		lastItems int
	}{
		{"configured zone", ist, "Mar 15", 0},
		{"utc", time.UTC, "Mar 14", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			u := store.addUser("asha", 0)
			store.records[u.ID] = []model.RecycleRecord{rec(model.DeviceLaptop, 2100, 315, deposit)}

			svc := NewImpactService(store, tt.loc)
			svc.now = func() time.Time { return now }

			r, err := svc.Report(context.Background(), u.ID)
			require.NoError(t, err)
			require.Len(t, r.Trend, 7)
			last := r.Trend[6]
			assert.Equal(t, tt.lastDate, last.Date)
			assert.Equal(t, tt.lastItems, last.Items)

			total := 0
			for _, p := range r.Trend {
				total += p.Items
			}
			assert.Equal(t, 1, total)
		})
	}
}
