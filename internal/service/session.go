package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	// decoders for image.DecodeConfig
	_ "image/jpeg"
	_ "image/png"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/classifier"
	"github.com/sakif/ecocycle/internal/detector"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
	"github.com/sakif/ecocycle/internal/valuation"
)

// DefaultCondition is the condition assumed until the user sets one.
const DefaultCondition = 0.5

// ScanInput selects the classification path. Exactly one is used, in this
// order: Image, Label, Width/Height, and otherwise the demo classifier.
type ScanInput struct {
	Image  []byte  `json:"-"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	BinID  string  `json:"binId"`
}

// CompleteResult is what a completed session committed.
type CompleteResult struct {
	Record    model.RecycleRecord `json:"record"`
	Reward    model.RewardData    `json:"reward"`
	NewBadges []model.Badge       `json:"newBadges"`
}

// SessionService drives the scan → condition → confirm → complete pipeline.
//
// Scan sessions live in memory, one per user, and are lost on restart. Each
// user's session has its own mutex, so a user's steps run one at a time
// while different users proceed in parallel.
type SessionService struct {
	classifier *classifier.Classifier
	calc       *valuation.Calculator
	detector   detector.Detector // optional
	users      repository.UserRepository
	records    repository.RecordRepository
	progress   ProgressRecorder // optional
	scores     ScoreRecorder    // optional
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*userSession
}

type userSession struct {
	mu    sync.Mutex
	state model.ScanSession
}

// SessionDeps groups the collaborators of a SessionService. Detector,
// Progress and Scores may be nil. Location sets where calendar days start
// and defaults to UTC; it should match the challenge service's zone.
type SessionDeps struct {
	Classifier *classifier.Classifier
	Calculator *valuation.Calculator
	Detector   detector.Detector
	Store      repository.Store
	Progress   ProgressRecorder
	Scores     ScoreRecorder
	Location   *time.Location
	Logger     *slog.Logger
}

func NewSessionService(deps SessionDeps) *SessionService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		classifier: deps.Classifier,
		calc:       deps.Calculator,
		detector:   deps.Detector,
		users:      deps.Store,
		records:    deps.Store,
		progress:   deps.Progress,
		scores:     deps.Scores,
		loc:        loc,
		now:        time.Now,
		logger:     deps.Logger,
		sessions:   make(map[string]*userSession),
	}
}

// session returns the user's session, creating it on first use.
func (s *SessionService) session(userID string) *userSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	us, ok := s.sessions[userID]
	if !ok {
		us = &userSession{state: model.ScanSession{CurrentCondition: DefaultCondition}}
		s.sessions[userID] = us
	}
	return us
}

// State returns a copy of the user's session.
func (s *SessionService) State(userID string) model.ScanSession {
	us := s.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.state
}

// Scan classifies an item and makes it the current scan. Any pending reward
// from a previous scan is discarded.
func (s *SessionService) Scan(ctx context.Context, userID string, in ScanInput) (*model.ClassificationResult, error) {
	if in.Label != "" && (in.Score < 0 || in.Score > 1) {
		return nil, apperror.ValidationFailed("score", "score must be between 0 and 1")
	}
	if in.Width < 0 || in.Height < 0 {
		return nil, apperror.ValidationFailed("width", "dimensions must not be negative")
	}

	var result model.ClassificationResult
	switch {
	case len(in.Image) > 0:
		result = s.classifyImage(ctx, in.Image)
	case in.Label != "":
		result = s.classifier.ClassifyLabel(in.Label, in.Score)
	case in.Width > 0 && in.Height > 0:
		result = s.classifier.ClassifyDimensions(in.Width, in.Height)
	default:
		result = s.classifier.ClassifyDemo()
	}

	us := s.session(userID)
	us.mu.Lock()
	us.state.CurrentScan = &result
	us.state.PendingReward = nil
	us.state.BinID = in.BinID
	us.mu.Unlock()

	s.logger.Debug("item scanned",
		slog.String("userID", userID),
		slog.String("device", string(result.DeviceType)),
		slog.Int("confidence", result.Confidence),
	)
	return &result, nil
}

// classifyImage runs the detector, then falls back to the image's pixel
// dimensions, then to the demo classifier.
func (s *SessionService) classifyImage(ctx context.Context, img []byte) model.ClassificationResult {
	if s.detector != nil {
		detections, err := s.detector.Detect(ctx, img)
		if err != nil {
			s.logger.Warn("detection failed, falling back to image dimensions",
				slog.String("error", err.Error()),
			)
		} else if best, ok := detector.Best(detections); ok {
			return s.classifier.ClassifyLabel(best.Class, best.Score)
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return s.classifier.ClassifyDimensions(cfg.Width, cfg.Height)
	}
	if err != nil {
		s.logger.Warn("image not decodable, using demo classification",
			slog.String("error", err.Error()),
		)
	}
	return s.classifier.ClassifyDemo()
}

// SetCondition records the item's condition, 0 (broken) to 1 (like new).
func (s *SessionService) SetCondition(userID string, condition float64) error {
	if math.IsNaN(condition) || condition < 0 || condition > 1 {
		return apperror.ValidationFailed("condition", "condition must be between 0 and 1")
	}
	us := s.session(userID)
	us.mu.Lock()
	us.state.CurrentCondition = condition
	us.mu.Unlock()
	return nil
}

// ConfirmDisposal freezes the reward for the current scan. When confirmed is
// false, manualType (if set) overrides the classified type.
//
// The value uses the final type for rarity but the scan's category and
// weight; points depend on weight and category only, so a manual override
// never changes points.
func (s *SessionService) ConfirmDisposal(ctx context.Context, userID string, confirmed bool, manualType model.DeviceType) (*model.RewardData, error) {
	if manualType != "" && !manualType.Valid() {
		return nil, apperror.ValidationFailed("manualType", "unknown device type")
	}

	us := s.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	scan := us.state.CurrentScan
	if scan == nil {
		return nil, apperror.ValidationFailed("scan", "No scan in progress")
	}

	finalType := scan.DeviceType
	if !confirmed && manualType != "" {
		finalType = manualType
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: loading user %s: %w", userID, err)
	}
	history, err := s.records.ListRecords(ctx, userID, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("service/session: loading history: %w", err)
	}
	badges, err := s.records.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: loading badges: %w", err)
	}
	held := make([]string, 0, len(badges))
	for _, b := range badges {
		held = append(held, b.Name)
	}

	breakdown := s.calc.CalculateValue(finalType, scan.SuggestedCategory, scan.EstimatedWeight, us.state.CurrentCondition)
	points := s.calc.CalculatePoints(scan.EstimatedWeight, scan.SuggestedCategory)
	newBadges := valuation.CheckBadges(user.Points+points, history, finalType, held)
	if newBadges == nil {
		newBadges = []string{}
	}

	reward := &model.RewardData{
		Points:         points,
		Weight:         scan.EstimatedWeight,
		MaterialBonus:  breakdown.MaterialBonus,
		NewBadges:      newBadges,
		ValueBreakdown: breakdown,
		ItemType:       finalType,
		CO2Saved:       s.calc.EstimateCO2Saved(scan.EstimatedWeight, finalType),
	}
	us.state.PendingReward = reward

	out := *reward
	return &out, nil
}

// CompleteSession commits the pending reward. It returns (nil, nil) and
// changes nothing when there is no pending reward, no current scan, or the
// user no longer exists.
//
// The record, points, CO2 and badges are stored in one transaction; NewBadges
// lists only the badges that transaction inserted. Challenge
// progress and the leaderboard cache are updated afterwards on a best-effort
// basis: their failures are logged and do not undo the deposit.
func (s *SessionService) CompleteSession(ctx context.Context, userID string) (*CompleteResult, error) {
	us := s.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	reward, scan := us.state.PendingReward, us.state.CurrentScan
	if reward == nil || scan == nil {
		return nil, nil
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/session: loading user %s: %w", userID, err)
	}

	now := s.now().In(s.loc)
	y, m, d := now.Date()
	today, err := s.records.ListRecords(ctx, userID, repository.ListOptions{
		Limit: 1,
		Since: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
	})
	if err != nil {
		return nil, fmt.Errorf("service/session: loading today's deposits: %w", err)
	}
	firstToday := len(today) == 0

	binID := us.state.BinID
	if binID == "" {
		binID = model.DefaultBinID
	}
	record := model.RecycleRecord{
		ItemType:     reward.ItemType,
		Weight:       int(math.Round(scan.EstimatedWeight * 1000)),
		PointsEarned: reward.Points,
		DepositedAt:  now,
		BinID:        binID,
	}

	badges := make([]model.Badge, 0, len(reward.NewBadges))
	for _, name := range reward.NewBadges {
		desc, icon := valuation.BadgeInfo(name)
		badges = append(badges, model.Badge{Name: name, Description: desc, Icon: icon, EarnedAt: now})
	}

	credit := repository.Credit{
		UserID:  userID,
		Records: []model.RecycleRecord{record},
		Points:  reward.Points,
		CO2:     reward.CO2Saved,
		Badges:  badges,
	}
	stored, err := s.records.ApplyCredit(ctx, credit)
	if err != nil {
		return nil, fmt.Errorf("service/session: committing deposit: %w", err)
	}

	result := &CompleteResult{Record: credit.Records[0], Reward: *reward, NewBadges: stored}
	us.state = model.ScanSession{CurrentCondition: DefaultCondition}

	s.logger.Info("deposit completed",
		slog.String("userID", userID),
		slog.String("device", string(record.ItemType)),
		slog.Int("points", record.PointsEarned),
		slog.String("bin", binID),
	)

	s.notifyProgress(ctx, userID, reward.Points, firstToday)
	if s.scores != nil {
		if err := s.scores.RecordScore(ctx, userID); err != nil {
			s.logger.Warn("leaderboard cache update failed",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

type progressEvent struct {
	id  string
	inc int
}

func (s *SessionService) notifyProgress(ctx context.Context, userID string, points int, firstToday bool) {
	if s.progress == nil {
		return
	}
	events := []progressEvent{
		{model.ChallengeDailyScan, 1},
		{model.ChallengeWeeklyItems, 1},
		{model.ChallengeDailyPoints, points},
		{model.ChallengeMonthlyPoints, points},
	}
	if firstToday {
		events = append(events, progressEvent{model.ChallengeWeeklyStreak, 1})
	}

	for _, e := range events {
		if err := s.progress.UpdateProgress(ctx, userID, e.id, e.inc); err != nil {
			s.logger.Error("failed to update challenge progress",
				slog.String("userID", userID),
				slog.String("challenge", e.id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ResetSession clears the scan and pending reward and restores the default
// condition.
func (s *SessionService) ResetSession(userID string) {
	us := s.session(userID)
	us.mu.Lock()
	us.state = model.ScanSession{CurrentCondition: DefaultCondition}
	us.mu.Unlock()
}

// Drop forgets the user's session entirely. Called on logout.
func (s *SessionService) Drop(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}
