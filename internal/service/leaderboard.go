package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

// LeaderboardSize is how many ranked entries a leaderboard returns.
const LeaderboardSize = 50

// ScoreRecorder is told when a user's lifetime points change so a cached
// ranking can follow.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, userID string) error
}

var _ ScoreRecorder = (*LeaderboardService)(nil)

// LeaderboardService ranks users by points over a period.
//
// Weekly and monthly boards are computed from deposits in SQLite. The
// all-time board is read from the Redis cache when one is configured and
// falls back to SQLite when the cache is absent or fails.
type LeaderboardService struct {
	repo    repository.LeaderboardRepository
	users   repository.UserRepository
	records repository.RecordRepository
	cache   repository.LeaderboardCache // nil when Redis is not configured
	now     func() time.Time
	logger  *slog.Logger
}

func NewLeaderboardService(
	store repository.Store,
	cache repository.LeaderboardCache,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		repo:    store,
		users:   store,
		records: store,
		cache:   cache,
		now:     time.Now,
		logger:  logger,
	}
}

// ParsePeriod maps the query value to a period. Empty means weekly, the
// board the app opens on.
func ParsePeriod(s string) (model.LeaderboardPeriod, error) {
	switch model.LeaderboardPeriod(s) {
	case "", model.PeriodWeekly:
		return model.PeriodWeekly, nil
	case model.PeriodMonthly:
		return model.PeriodMonthly, nil
	case model.PeriodAllTime:
		return model.PeriodAllTime, nil
	}
	return "", apperror.ValidationFailed("period", "period must be weekly, monthly or allTime")
}

// since returns the start of the period's window; zero for all time.
func (s *LeaderboardService) since(period model.LeaderboardPeriod) time.Time {
	switch period {
	case model.PeriodWeekly:
		return s.now().AddDate(0, 0, -7)
	case model.PeriodMonthly:
		return s.now().AddDate(0, 0, -30)
	}
	return time.Time{}
}

// Get returns the top entries for the period plus the caller's own entry,
// which is present even when the caller is outside the top list or has no
// activity in the window.
func (s *LeaderboardService) Get(ctx context.Context, period model.LeaderboardPeriod, userID string) (*model.Leaderboard, error) {
	if period == model.PeriodAllTime && s.cache != nil {
		board, err := s.fromCache(ctx, userID)
		if err == nil {
			return board, nil
		}
		s.logger.Warn("leaderboard cache read failed, using database",
			slog.String("error", err.Error()),
		)
	}

	rows, err := s.repo.LeaderboardRows(ctx, s.since(period))
	if err != nil {
		return nil, fmt.Errorf("service/leaderboard: loading %s rows: %w", period, err)
	}
	Rank(rows)

	board := &model.Leaderboard{Period: period, Entries: rows}
	for i := range rows {
		if rows[i].UserID == userID {
			me := rows[i]
			board.Me = &me
			break
		}
	}
	if len(board.Entries) > LeaderboardSize {
		board.Entries = board.Entries[:LeaderboardSize]
	}

	if board.Me == nil && userID != "" {
		me, err := s.unranked(ctx, userID, len(rows)+1)
		if err != nil {
			return nil, err
		}
		board.Me = me
	}
	return board, nil
}

// unranked builds the caller's entry when they have no row in the window.
func (s *LeaderboardService) unranked(ctx context.Context, userID string, rank int) (*model.LeaderboardEntry, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/leaderboard: loading user %s: %w", userID, err)
	}
	return &model.LeaderboardEntry{UserID: user.ID, UserName: user.Name, Rank: rank}, nil
}

func (s *LeaderboardService) fromCache(ctx context.Context, userID string) (*model.Leaderboard, error) {
	top, err := s.cache.Top(ctx, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	// an empty cache right after startup is rebuilt lazily
	if len(top) == 0 {
		if _, err := s.RebuildCache(ctx); err != nil {
			return nil, err
		}
		if top, err = s.cache.Top(ctx, LeaderboardSize); err != nil {
			return nil, err
		}
	}
	Rank(top)

	board := &model.Leaderboard{Period: model.PeriodAllTime, Entries: top}
	for i := range top {
		if top[i].UserID == userID {
			me := top[i]
			board.Me = &me
			return board, nil
		}
	}
	if userID == "" {
		return board, nil
	}

	me, err := s.cache.Entry(ctx, userID)
	if err != nil {
		return nil, err
	}
	if me == nil {
		// not cached yet: add now and rank as last
		if err := s.RecordScore(ctx, userID); err != nil {
			return nil, err
		}
		if me, err = s.cache.Entry(ctx, userID); err != nil || me == nil {
			return nil, fmt.Errorf("service/leaderboard: user %s missing from cache", userID)
		}
	}
	board.Me = me
	return board, nil
}

// Rank sorts entries by points, then items recycled, both descending, then
// name ascending, and assigns 1-based ranks.
func Rank(entries []model.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ItemsRecycled != b.ItemsRecycled {
			return a.ItemsRecycled > b.ItemsRecycled
		}
		return a.UserName < b.UserName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// RecordScore copies a user's lifetime points into the cache. It is a no-op
// without a cache.
func (s *LeaderboardService) RecordScore(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/leaderboard: loading user %s: %w", userID, err)
	}
	history, err := s.records.ListRecords(ctx, userID, repository.ListOptions{})
	if err != nil {
		return fmt.Errorf("service/leaderboard: loading history for %s: %w", userID, err)
	}
	return s.cache.SetScore(ctx, model.LeaderboardEntry{
		UserID:        user.ID,
		UserName:      user.Name,
		Points:        user.Points,
		ItemsRecycled: len(history),
	})
}

// RebuildCache loads every user's lifetime totals into the cache and returns
// how many entries were written.
func (s *LeaderboardService) RebuildCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	rows, err := s.repo.LeaderboardRows(ctx, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("service/leaderboard: loading rows: %w", err)
	}
	for _, row := range rows {
		if err := s.cache.SetScore(ctx, row); err != nil {
			return 0, fmt.Errorf("service/leaderboard: caching %s: %w", row.UserID, err)
		}
	}
	s.logger.Info("leaderboard cache rebuilt", slog.Int("entries", len(rows)))
	return len(rows), nil
}
