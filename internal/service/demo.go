package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

const (
	demoRecords     = 15
	demoDays        = 30
	demoBonusPoints = 500
	demoBonusCO2    = 12
)

var demoDevices = []model.DeviceType{
	model.DeviceSmartphone,
	model.DeviceLaptop,
	model.DeviceTablet,
	model.DeviceBattery,
	model.DeviceCharger,
}

var demoBadges = []struct {
	name, description, icon string
	daysAgo                 int
}{
	{"First Steps", "Recycled your first device", "🌱", 25},
	{"Eco Warrior", "Recycled 10 devices", "🌍", 15},
	{"Tech Saver", "Saved 5kg of e-waste", "💚", 10},
	{"Recycling Champion", "Earned 2000 points", "🏆", 5},
}

// Competitor is a sample account that populates an empty leaderboard.
type Competitor struct {
	Name   string
	Points int
	Items  int
}

// Competitors are the sample accounts created by SeedCompetitors.
var Competitors = []Competitor{
	{"Priya Sharma", 2850, 28},
	{"Rahul Verma", 2650, 24},
	{"Ananya Patel", 2400, 22},
	{"Arjun Singh", 2200, 20},
	{"Sneha Reddy", 2100, 19},
	{"Vikram Kumar", 1950, 18},
	{"Kavya Nair", 1800, 16},
	{"Rohan Gupta", 1650, 15},
	{"Ishita Joshi", 1500, 14},
	{"Aditya Mehta", 1350, 12},
}

// DemoService fills accounts with sample data for demos.
type DemoService struct {
	users   repository.UserRepository
	records repository.RecordRepository
	scores  ScoreRecorder // optional
	intn    func(n int) int
	now     func() time.Time
	logger  *slog.Logger
}

func NewDemoService(store repository.Store, scores ScoreRecorder, logger *slog.Logger) *DemoService {
	return &DemoService{
		users:   store,
		records: store,
		scores:  scores,
		intn:    rand.IntN,
		now:     time.Now,
		logger:  logger,
	}
}

// SeedResult summarizes what a seed added.
type SeedResult struct {
	Records int     `json:"records"`
	Badges  int     `json:"badges"`
	Points  int     `json:"points"`
	CO2     float64 `json:"co2"`
}

// SeedDemo appends 15 random deposits from the last 30 days and the four
// demo badges to the user, and credits their points plus a bonus.
//
// Seeding adds to what the user already has, so points and CO2 only grow.
// Badges the user already holds are skipped.
func (s *DemoService) SeedDemo(ctx context.Context, userID string) (*SeedResult, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/demo: loading user %s: %w", userID, err)
	}

	now := s.now()
	records := make([]model.RecycleRecord, 0, demoRecords)
	points, co2 := 0, 0.0
	for range demoRecords {
		r := model.RecycleRecord{
			ItemType:     demoDevices[s.intn(len(demoDevices))],
			Weight:       s.intn(500) + 100,
			PointsEarned: s.intn(400) + 100,
			DepositedAt:  now.AddDate(0, 0, -s.intn(demoDays)),
			BinID:        fmt.Sprintf("BIN-DEMO-%d", s.intn(5)+1),
		}
		points += r.PointsEarned
		co2 += float64(r.Weight) / 1000 * trendCO2PerKg
		records = append(records, r)
	}

	badges := make([]model.Badge, 0, len(demoBadges))
	for _, b := range demoBadges {
		badges = append(badges, model.Badge{
			Name:        b.name,
			Description: b.description,
			Icon:        b.icon,
			EarnedAt:    now.AddDate(0, 0, -b.daysAgo),
		})
	}

	credit := repository.Credit{
		UserID:  userID,
		Records: records,
		Points:  points + demoBonusPoints,
		CO2:     math.Round(co2 + demoBonusCO2),
		Badges:  badges,
	}
	stored, err := s.records.ApplyCredit(ctx, credit)
	if err != nil {
		return nil, fmt.Errorf("service/demo: applying seed: %w", err)
	}

	s.recordScore(ctx, userID)
	s.logger.Info("demo data seeded",
		slog.String("userID", userID),
		slog.Int("points", credit.Points),
	)
	return &SeedResult{
		Records: len(records),
		Badges:  len(stored),
		Points:  credit.Points,
		CO2:     credit.CO2,
	}, nil
}

// SeedCompetitors creates the sample leaderboard accounts. Each gets Items
// deposits spread over the last 30 days whose points add up to Points.
// Accounts that already exist are left alone. It returns how many were
// created.
func (s *DemoService) SeedCompetitors(ctx context.Context) (int, error) {
	now := s.now()
	created := 0
	for _, c := range Competitors {
		user := &model.User{
			Name:             c.Name,
			Email:            strings.ReplaceAll(strings.ToLower(c.Name), " ", ".") + "@demo.ecocycle.app",
			FavoriteCategory: model.DeviceSmartphone,
		}
		if err := s.users.CreateUser(ctx, user, nil); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("service/demo: creating %s: %w", c.Name, err)
		}

		records := make([]model.RecycleRecord, 0, c.Items)
		per, rest := c.Points/c.Items, c.Points%c.Items
		for i := range c.Items {
			pts := per
			if i < rest {
				pts++
			}
			records = append(records, model.RecycleRecord{
				ItemType:     demoDevices[s.intn(len(demoDevices))],
				Weight:       s.intn(500) + 100,
				PointsEarned: pts,
				DepositedAt:  now.Add(-time.Duration(s.intn(demoDays*24)) * time.Hour),
				BinID:        Bins[s.intn(len(Bins))].ID,
			})
		}

		_, err := s.records.ApplyCredit(ctx, repository.Credit{
			UserID:  user.ID,
			Records: records,
			Points:  c.Points,
		})
		if err != nil {
			return created, fmt.Errorf("service/demo: crediting %s: %w", c.Name, err)
		}
		s.recordScore(ctx, user.ID)
		created++
	}
	return created, nil
}

func (s *DemoService) recordScore(ctx context.Context, userID string) {
	if s.scores == nil {
		return
	}
	if err := s.scores.RecordScore(ctx, userID); err != nil {
		s.logger.Warn("leaderboard cache update failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}
