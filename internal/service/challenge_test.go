package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
)

// 2026-10-14 is a Wednesday.
var wednesday = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestChallengeService(store *fakeStore, now time.Time) *ChallengeService {
	svc := NewChallengeService(store, store, time.UTC, discardLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func byID(cs []model.Challenge) map[string]model.Challenge {
	m := make(map[string]model.Challenge, len(cs))
	for _, c := range cs {
		m[c.ID] = c
	}
	return m
}

// =========================================================================
// GENERATION
// =========================================================================

func TestGenerateChallenges_Expiries(t *testing.T) {
	endOf := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	}
	tests := []struct {
		name                   string
		now                    time.Time
		daily, weekly, monthly time.Time
	}{
		{"midweek", wednesday, endOf(2026, 10, 14), endOf(2026, 10, 18), endOf(2026, 10, 31)},
		{"sunday rolls a full week", time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC), endOf(2026, 10, 18), endOf(2026, 10, 25), endOf(2026, 10, 31)},
		{"february", time.Date(2028, 2, 10, 0, 0, 0, 0, time.UTC), endOf(2028, 2, 10), endOf(2028, 2, 13), endOf(2028, 2, 29)},
		{"month end", time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC), endOf(2026, 12, 31), endOf(2027, 1, 3), endOf(2026, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := byID(GenerateChallenges(tt.now))
			if len(got) != 5 {
				t.Fatalf("generated %d challenges, want 5", len(got))
			}
			check := func(id string, want time.Time) {
				if !got[id].ExpiresAt.Equal(want) {
					t.Errorf("%s expires %v, want %v", id, got[id].ExpiresAt, want)
				}
			}
			check(model.ChallengeDailyScan, tt.daily)
			check(model.ChallengeDailyPoints, tt.daily)
			check(model.ChallengeWeeklyItems, tt.weekly)
			check(model.ChallengeWeeklyStreak, tt.weekly)
			check(model.ChallengeMonthlyPoints, tt.monthly)
		})
	}
}

func TestGenerateChallenges_Goals(t *testing.T) {
	got := byID(GenerateChallenges(wednesday))
	want := map[string][2]int{
		model.ChallengeDailyScan:     {1, 50},
		model.ChallengeDailyPoints:   {100, 75},
		model.ChallengeWeeklyItems:   {5, 300},
		model.ChallengeWeeklyStreak:  {3, 250},
		model.ChallengeMonthlyPoints: {1000, 500},
	}
	for id, gr := range want {
		c := got[id]
		if c.Goal != gr[0] || c.Reward != gr[1] {
			t.Errorf("%s goal/reward = %d/%d, want %d/%d", id, c.Goal, c.Reward, gr[0], gr[1])
		}
		if c.Progress != 0 || c.Completed || c.Claimed {
			t.Errorf("%s should start fresh: %+v", id, c)
		}
	}
}

// =========================================================================
// INITIALIZE AND SWEEP
// =========================================================================

func TestInitialize_GeneratesOnce(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	svc := newTestChallengeService(store, wednesday)

	first, err := svc.Initialize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("got %d challenges, want 5", len(first))
	}

	if err := svc.UpdateProgress(context.Background(), u.ID, model.ChallengeWeeklyItems, 2); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	second, err := svc.Initialize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if byID(second)[model.ChallengeWeeklyItems].Progress != 2 {
		t.Error("second Initialize should keep live progress")
	}
}

func TestSweep_ReplacesOnlyExpired(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	ctx := context.Background()

	svc := newTestChallengeService(store, wednesday)
	if err := svc.UpdateProgress(ctx, u.ID, model.ChallengeDailyScan, 1); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if err := svc.UpdateProgress(ctx, u.ID, model.ChallengeWeeklyItems, 3); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	thursday := wednesday.AddDate(0, 0, 1)
	svc.now = func() time.Time { return thursday }
	changed, err := svc.ResetExpired(ctx, u.ID)
	if err != nil {
		t.Fatalf("ResetExpired() error = %v", err)
	}
	if !changed {
		t.Fatal("ResetExpired() = false, want true")
	}

	got := byID(store.challenges[u.ID])
	if len(got) != 5 {
		t.Fatalf("have %d challenges after sweep, want 5", len(got))
	}
	daily := got[model.ChallengeDailyScan]
	if daily.Completed || daily.Progress != 0 {
		t.Errorf("daily should be fresh, got %+v", daily)
	}
	if !daily.ExpiresAt.Equal(endOfDay(thursday)) {
		t.Errorf("daily expires %v, want %v", daily.ExpiresAt, endOfDay(thursday))
	}
	if got[model.ChallengeWeeklyItems].Progress != 3 {
		t.Errorf("weekly progress = %d, want 3 (live instance untouched)", got[model.ChallengeWeeklyItems].Progress)
	}

	changed, err = svc.ResetExpired(ctx, u.ID)
	if err != nil || changed {
		t.Errorf("second ResetExpired() = %v, %v; want false, nil", changed, err)
	}
}

func TestSweepAll(t *testing.T) {
	store := newFakeStore()
	a := store.addUser("a", 0)
	b := store.addUser("b", 0)
	store.addUser("c", 0) // no challenges yet
	ctx := context.Background()

	svc := newTestChallengeService(store, wednesday)
	for _, id := range []string{a.ID, b.ID} {
		if _, err := svc.Initialize(ctx, id); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
	}

	svc.now = func() time.Time { return wednesday.AddDate(0, 0, 1) }
	n, err := svc.SweepAll(ctx)
	if err != nil {
		t.Fatalf("SweepAll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("SweepAll() = %d, want 2", n)
	}
}

// =========================================================================
// PROGRESS AND CLAIM
// =========================================================================

func TestUpdateProgress_CapsAtGoal(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	svc := newTestChallengeService(store, wednesday)
	ctx := context.Background()

	for _, inc := range []int{60, 70, 0, -5} {
		if err := svc.UpdateProgress(ctx, u.ID, model.ChallengeDailyPoints, inc); err != nil {
			t.Fatalf("UpdateProgress(%d) error = %v", inc, err)
		}
	}
	c := byID(store.challenges[u.ID])[model.ChallengeDailyPoints]
	if c.Progress != 100 || !c.Completed {
		t.Errorf("progress = %d completed = %v, want 100 true", c.Progress, c.Completed)
	}

	// further events leave a completed challenge alone
	if err := svc.UpdateProgress(ctx, u.ID, model.ChallengeDailyPoints, 10); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if got := byID(store.challenges[u.ID])[model.ChallengeDailyPoints].Progress; got != 100 {
		t.Errorf("progress after completion = %d, want 100", got)
	}

	if err := svc.UpdateProgress(ctx, u.ID, "no-such-challenge", 1); err != nil {
		t.Errorf("unknown challenge should be ignored, got %v", err)
	}
}

func TestClaim(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 10)
	svc := newTestChallengeService(store, wednesday)
	ctx := context.Background()

	_, err := svc.Claim(ctx, u.ID, model.ChallengeDailyScan)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("claim before completion: error = %v, want ErrValidation", err)
	}

	if err := svc.UpdateProgress(ctx, u.ID, model.ChallengeDailyScan, 1); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	reward, err := svc.Claim(ctx, u.ID, model.ChallengeDailyScan)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if reward != 50 {
		t.Errorf("reward = %d, want 50", reward)
	}
	if store.users[u.ID].Points != 60 {
		t.Errorf("points = %d, want 60", store.users[u.ID].Points)
	}

	if _, err := svc.Claim(ctx, u.ID, model.ChallengeDailyScan); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second claim: error = %v, want ErrConflict", err)
	}
	if _, err := svc.Claim(ctx, u.ID, "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown claim: error = %v, want ErrNotFound", err)
	}
}

func TestClaim_ExpiredCompletedIsGone(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	svc := newTestChallengeService(store, wednesday)
	ctx := context.Background()

	if err := svc.UpdateProgress(ctx, u.ID, model.ChallengeDailyScan, 1); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	// the next day the completed daily is swept before the claim sees it
	svc.now = func() time.Time { return wednesday.AddDate(0, 0, 1) }
	_, err := svc.Claim(ctx, u.ID, model.ChallengeDailyScan)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for the fresh instance", err)
	}
}
