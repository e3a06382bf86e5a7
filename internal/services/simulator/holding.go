package simulator

import (
	"context"

	"FinWalk/internal/domain/models"
	domsvc "FinWalk/internal/domain/service"
	"FinWalk/internal/services/features"
)

// BuyAndHold holds a long position over the whole segment.
type BuyAndHold struct{}

func NewBuyAndHold() *BuyAndHold { return &BuyAndHold{} }

func (BuyAndHold) SimulateHolding(ctx context.Context, segment models.Series, freq models.Frequency) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rets := features.SimpleReturns(segment.Values())
	return features.Sharpe(rets, features.BarsPerYearForTF(string(freq))), nil
}

var _ domsvc.HoldingSimulator = BuyAndHold{}
