package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
)

func TestUserService_Profile(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	now := time.Now()
	store.records[u.ID] = []model.RecycleRecord{
		rec(model.DeviceBattery, 50, 6, now.Add(-2*time.Hour)),
		rec(model.DeviceBattery, 50, 6, now.Add(-time.Hour)),
		rec(model.DeviceLaptop, 2100, 315, now),
	}
	store.badges[u.ID] = []model.Badge{{Name: "Eco Starter"}}
	svc := NewUserService(store)

	p, err := svc.Profile(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.FavoriteCategory != model.DeviceBattery {
		t.Errorf("FavoriteCategory = %s, want battery", p.FavoriteCategory)
	}
	if len(p.RecyclingHistory) != 3 || p.RecyclingHistory[0].ItemType != model.DeviceLaptop {
		t.Errorf("history should be newest first, got %+v", p.RecyclingHistory)
	}
	if len(p.Badges) != 1 {
		t.Errorf("got %d badges, want 1", len(p.Badges))
	}

	if _, err := svc.Profile(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Profile(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestUserService_HistoryPaging(t *testing.T) {
	store := newFakeStore()
	u := store.addUser("asha", 0)
	now := time.Now()
	for i := range 30 {
		store.records[u.ID] = append(store.records[u.ID], rec(model.DeviceCable, 80, 8, now.Add(-time.Duration(i)*time.Minute)))
	}
	svc := NewUserService(store)
	ctx := context.Background()

	tests := []struct {
		limit, offset, want int
	}{
		{0, 0, 20},
		{500, 0, 20},
		{5, 0, 5},
		{20, 25, 5},
		{10, -3, 10},
	}
	for _, tt := range tests {
		got, err := svc.History(ctx, u.ID, tt.limit, tt.offset)
		if err != nil {
			t.Fatalf("History(%d, %d) error = %v", tt.limit, tt.offset, err)
		}
		if len(got) != tt.want {
			t.Errorf("History(%d, %d) returned %d, want %d", tt.limit, tt.offset, len(got), tt.want)
		}
	}
}

func TestUserService_Settings(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store)
	ctx := context.Background()

	s, err := svc.Settings(ctx, "u1")
	if err != nil || s.HideSafetyCheck {
		t.Fatalf("Settings() = %+v, %v; want zero value", s, err)
	}
	if err := svc.SaveSettings(ctx, "u1", model.Settings{HideSafetyCheck: true}); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if s, _ := svc.Settings(ctx, "u1"); !s.HideSafetyCheck {
		t.Error("saved setting was not returned")
	}
}
