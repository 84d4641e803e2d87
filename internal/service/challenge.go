package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

// ProgressRecorder receives challenge progress events. The session service
// depends on this interface rather than on ChallengeService directly.
type ProgressRecorder interface {
	UpdateProgress(ctx context.Context, userID, challengeID string, increment int) error
}

var _ ProgressRecorder = (*ChallengeService)(nil)

// ChallengeService manages each user's set of time-boxed challenges.
//
// Every user holds exactly one instance of each challenge ID. When an
// instance expires it is replaced by a fresh one with zero progress; live
// instances are never touched by a sweep.
type ChallengeService struct {
	repo   repository.ChallengeRepository
	users  repository.UserRepository
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger

	// serializes read-modify-write cycles on challenge rows
	mu sync.Mutex
}

// NewChallengeService creates the service. Expiry boundaries (end of day,
// week, month) are computed in loc; nil means UTC.
func NewChallengeService(
	repo repository.ChallengeRepository,
	users repository.UserRepository,
	loc *time.Location,
	logger *slog.Logger,
) *ChallengeService {
	if loc == nil {
		loc = time.UTC
	}
	return &ChallengeService{
		repo:   repo,
		users:  users,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// endOfDay returns 23:59:59.999 on t's calendar day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// GenerateChallenges returns a fresh set of challenges with expiries
// relative to now:
//
//	daily   → today 23:59:59.999
//	weekly  → the coming Sunday 23:59:59.999 (a full week ahead on Sundays)
//	monthly → last day of the month 23:59:59.999
func GenerateChallenges(now time.Time) []model.Challenge {
	daily := endOfDay(now)
	weekly := endOfDay(now.AddDate(0, 0, 7-int(now.Weekday())))
	y, m, _ := now.Date()
	// day 0 of next month normalizes to the last day of this month
	monthly := endOfDay(time.Date(y, m+1, 0, 0, 0, 0, 0, now.Location()))

	return []model.Challenge{
		{
			ID:          model.ChallengeDailyScan,
			Title:       "First Scan of the Day",
			Description: "Scan 1 device today",
			Type:        model.ChallengeDaily,
			Goal:        1,
			Reward:      50,
			Icon:        "scan",
			ExpiresAt:   daily,
		},
		{
			ID:          model.ChallengeDailyPoints,
			Title:       "Point Collector",
			Description: "Earn 100 points today",
			Type:        model.ChallengeDaily,
			Goal:        100,
			Reward:      75,
			Icon:        "star",
			ExpiresAt:   daily,
		},
		{
			ID:          model.ChallengeWeeklyItems,
			Title:       "Weekly Recycler",
			Description: "Recycle 5 items this week",
			Type:        model.ChallengeWeekly,
			Goal:        5,
			Reward:      300,
			Icon:        "recycle",
			ExpiresAt:   weekly,
		},
		{
			ID:          model.ChallengeWeeklyStreak,
			Title:       "Consistency Champion",
			Description: "Recycle on 3 different days",
			Type:        model.ChallengeWeekly,
			Goal:        3,
			Reward:      250,
			Icon:        "fire",
			ExpiresAt:   weekly,
		},
		{
			ID:          model.ChallengeMonthlyPoints,
			Title:       "Monthly Master",
			Description: "Earn 1000 points this month",
			Type:        model.ChallengeMonthly,
			Goal:        1000,
			Reward:      500,
			Icon:        "trophy",
			ExpiresAt:   monthly,
		},
	}
}

func (s *ChallengeService) clock() time.Time {
	return s.now().In(s.loc)
}

// Initialize generates the user's challenges if there are none and sweeps
// expired ones otherwise. It returns the current set.
func (s *ChallengeService) Initialize(ctx context.Context, userID string) ([]model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialize(ctx, userID)
}

func (s *ChallengeService) initialize(ctx context.Context, userID string) ([]model.Challenge, error) {
	current, err := s.repo.ListChallenges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/challenge: listing for %s: %w", userID, err)
	}

	if len(current) == 0 {
		fresh := GenerateChallenges(s.clock())
		if err := s.repo.ReplaceChallenges(ctx, userID, fresh); err != nil {
			return nil, fmt.Errorf("service/challenge: generating for %s: %w", userID, err)
		}
		return fresh, nil
	}

	merged, changed := sweep(current, s.clock())
	if !changed {
		return current, nil
	}
	if err := s.repo.ReplaceChallenges(ctx, userID, merged); err != nil {
		return nil, fmt.Errorf("service/challenge: sweeping for %s: %w", userID, err)
	}
	return merged, nil
}

// sweep drops expired challenges and adds fresh instances for the IDs that
// are no longer present. It reports whether anything expired.
func sweep(current []model.Challenge, now time.Time) ([]model.Challenge, bool) {
	expired := false
	for i := range current {
		if current[i].Expired(now) {
			expired = true
			break
		}
	}
	if !expired {
		return current, false
	}

	merged := make([]model.Challenge, 0, len(current))
	have := make(map[string]bool)
	for _, c := range current {
		if !c.Expired(now) {
			merged = append(merged, c)
			have[c.ID] = true
		}
	}
	for _, c := range GenerateChallenges(now) {
		if !have[c.ID] {
			merged = append(merged, c)
		}
	}
	return merged, true
}

// List is Initialize under the name the HTTP layer uses.
func (s *ChallengeService) List(ctx context.Context, userID string) ([]model.Challenge, error) {
	return s.Initialize(ctx, userID)
}

// UpdateProgress adds increment to a live, uncompleted challenge, capping at
// the goal. Completed or unknown challenges are left alone. Expired
// instances are swept first so progress lands in the current period.
func (s *ChallengeService) UpdateProgress(ctx context.Context, userID, challengeID string, increment int) error {
	if increment <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	challenges, err := s.initialize(ctx, userID)
	if err != nil {
		return err
	}

	for i := range challenges {
		c := &challenges[i]
		if c.ID != challengeID || c.Completed {
			continue
		}
		c.Progress = min(c.Progress+increment, c.Goal)
		c.Completed = c.Progress >= c.Goal
		if err := s.repo.UpdateChallenge(ctx, userID, c); err != nil {
			return fmt.Errorf("service/challenge: updating %s: %w", challengeID, err)
		}
		if c.Completed {
			s.logger.Info("challenge completed",
				slog.String("userID", userID),
				slog.String("challenge", challengeID),
			)
		}
		return nil
	}
	return nil
}

// Claim credits a completed challenge's reward to the user's points and
// returns the amount.
func (s *ChallengeService) Claim(ctx context.Context, userID, challengeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenges, err := s.initialize(ctx, userID)
	if err != nil {
		return 0, err
	}

	var target *model.Challenge
	for i := range challenges {
		if challenges[i].ID == challengeID {
			target = &challenges[i]
			break
		}
	}
	switch {
	case target == nil:
		return 0, apperror.NotFound("challenge", challengeID)
	case !target.Completed:
		return 0, apperror.ValidationFailed("challengeId", "Challenge is not completed yet")
	case target.Claimed:
		return 0, apperror.Conflict("Reward already claimed")
	}

	if err := s.repo.ClaimChallenge(ctx, userID, challengeID, target.Reward); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, fmt.Errorf("service/challenge: claiming %s: %w", challengeID, err)
	}

	s.logger.Info("challenge reward claimed",
		slog.String("userID", userID),
		slog.String("challenge", challengeID),
		slog.Int("reward", target.Reward),
	)
	return target.Reward, nil
}

// ResetExpired replaces the user's expired challenges and reports whether
// anything changed.
func (s *ChallengeService) ResetExpired(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.ListChallenges(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("service/challenge: listing for %s: %w", userID, err)
	}
	merged, changed := sweep(current, s.clock())
	if !changed {
		return false, nil
	}
	if err := s.repo.ReplaceChallenges(ctx, userID, merged); err != nil {
		return false, fmt.Errorf("service/challenge: sweeping for %s: %w", userID, err)
	}
	return true, nil
}

// SweepAll runs ResetExpired for every user and returns how many users had
// expired challenges. A failure for one user is logged and does not stop
// the sweep.
func (s *ChallengeService) SweepAll(ctx context.Context) (int, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/challenge: listing users: %w", err)
	}

	swept := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		changed, err := s.ResetExpired(ctx, id)
		if err != nil {
			s.logger.Error("challenge sweep failed",
				slog.String("userID", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if changed {
			swept++
		}
	}
	return swept, nil
}
