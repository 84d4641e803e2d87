package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
	"github.com/sakif/ecocycle/internal/valuation"
)

// Tiers are ordered by MinPoints. The last tier has no upper bound.
var Tiers = []model.RewardTier{
	{Name: "Bronze", MinPoints: 0, MaxPoints: 500, Icon: "🥉"},
	{Name: "Silver", MinPoints: 500, MaxPoints: 2000, Icon: "🥈"},
	{Name: "Gold", MinPoints: 2000, MaxPoints: 5000, Icon: "🥇"},
	{Name: "Platinum", MinPoints: 5000, MaxPoints: 10000, Icon: "💎"},
	{Name: "Diamond", MinPoints: 10000, Icon: "👑"},
}

var RedeemOptions = []model.RedeemOption{
	{ID: "coffee", Name: "Free Coffee", Points: 100, Description: "Any cafe partner", Category: "food"},
	{ID: "mobile-recharge", Name: "₹50 Mobile Recharge", Points: 200, Description: "Any operator", Category: "recharge"},
	{ID: "shopping-50", Name: "₹100 Shopping Voucher", Points: 350, Description: "Amazon/Flipkart", Category: "shopping"},
	{ID: "movie", Name: "Movie Ticket", Points: 400, Description: "BookMyShow", Category: "entertainment"},
	{ID: "electricity", Name: "₹100 Bill Payment", Points: 400, Description: "Any utility bill", Category: "bills"},
	{ID: "shopping-200", Name: "₹250 Shopping Voucher", Points: 800, Description: "Premium brands", Category: "shopping"},
}

var ExchangeOptions = []model.ExchangeOption{
	{ID: "upi", Name: "UPI Transfer", Rate: 1.0, MinPoints: 100, Description: "₹1 per point"},
	{ID: "bank", Name: "Bank Transfer", Rate: 1.0, MinPoints: 500, Description: "₹1 per point"},
	{ID: "charity", Name: "Donate to Charity", Rate: 1.5, MinPoints: 50, Description: "₹1.50 per point (150% value)"},
}

// TierProgress places a points total within the tier ladder.
type TierProgress struct {
	Current      model.RewardTier  `json:"current"`
	Next         *model.RewardTier `json:"next,omitempty"`
	Percent      float64           `json:"percent"`      // towards Next; 100 at the top tier
	PointsToNext int               `json:"pointsToNext"` // 0 at the top tier
}

// TierFor returns the tier for a lifetime points total.
func TierFor(points int) TierProgress {
	idx := 0
	for i, t := range Tiers {
		if points >= t.MinPoints {
			idx = i
		}
	}

	p := TierProgress{Current: Tiers[idx], Percent: 100}
	if idx+1 < len(Tiers) {
		next := Tiers[idx+1]
		p.Next = &next
		span := next.MinPoints - p.Current.MinPoints
		p.Percent = valuation.Round2(float64(points-p.Current.MinPoints) / float64(span) * 100)
		p.PointsToNext = next.MinPoints - points
	}
	return p
}

// Wallet is the user's spending view.
type Wallet struct {
	Points      int                    `json:"points"`
	SpentPoints int                    `json:"spentPoints"`
	Balance     int                    `json:"balance"`
	Tier        TierProgress           `json:"tier"`
	Redeem      []model.RedeemOption   `json:"redeemOptions"`
	Exchange    []model.ExchangeOption `json:"exchangeOptions"`
	Ledger      []model.Redemption     `json:"ledger"`
}

// RewardService spends points on vouchers and withdrawals.
//
// Tiers use lifetime points, so spending never drops a user's tier. Only the
// balance (points minus spent) goes down.
type RewardService struct {
	users  repository.UserRepository
	wallet repository.WalletRepository
	logger *slog.Logger
}

func NewRewardService(store repository.Store, logger *slog.Logger) *RewardService {
	return &RewardService{users: store, wallet: store, logger: logger}
}

// Wallet returns the balances, tier, catalog and ledger for a user.
func (s *RewardService) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/rewards: loading user %s: %w", userID, err)
	}
	ledger, err := s.wallet.ListRedemptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/rewards: loading ledger: %w", err)
	}
	return &Wallet{
		Points:      user.Points,
		SpentPoints: user.SpentPoints,
		Balance:     user.Balance(),
		Tier:        TierFor(user.Points),
		Redeem:      RedeemOptions,
		Exchange:    ExchangeOptions,
		Ledger:      ledger,
	}, nil
}

// Redeem buys a catalog item with points.
func (s *RewardService) Redeem(ctx context.Context, userID, optionID string) (*model.Redemption, error) {
	var option *model.RedeemOption
	for i := range RedeemOptions {
		if RedeemOptions[i].ID == optionID {
			option = &RedeemOptions[i]
			break
		}
	}
	if option == nil {
		return nil, apperror.NotFound("redeem option", optionID)
	}

	r := &model.Redemption{
		UserID:   userID,
		Kind:     model.RedemptionRedeem,
		OptionID: option.ID,
		Points:   option.Points,
	}
	if err := s.spend(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Withdraw converts amount points to money through an exchange option.
func (s *RewardService) Withdraw(ctx context.Context, userID, optionID string, amount int) (*model.Redemption, error) {
	var option *model.ExchangeOption
	for i := range ExchangeOptions {
		if ExchangeOptions[i].ID == optionID {
			option = &ExchangeOptions[i]
			break
		}
	}
	if option == nil {
		return nil, apperror.NotFound("exchange option", optionID)
	}
	if amount < option.MinPoints {
		return nil, apperror.ValidationFailed("amount",
			fmt.Sprintf("Minimum withdrawal is %d points", option.MinPoints))
	}

	r := &model.Redemption{
		UserID:   userID,
		Kind:     model.RedemptionWithdraw,
		OptionID: option.ID,
		Points:   amount,
		Payout:   valuation.Round2(float64(amount) * option.Rate),
	}
	if err := s.spend(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RewardService) spend(ctx context.Context, r *model.Redemption) error {
	if err := s.wallet.Spend(ctx, r); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("service/rewards: spending: %w", err)
	}
	s.logger.Info("points spent",
		slog.String("userID", r.UserID),
		slog.String("kind", string(r.Kind)),
		slog.String("option", r.OptionID),
		slog.Int("points", r.Points),
	)
	return nil
}
