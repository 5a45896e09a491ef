// Package credits prices media by duration and gates job admission on the
// owner's balance.
package credits

import (
	"context"
	"fmt"
	"math"

	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// BalanceField is the numeric field holding a user's credits.
const BalanceField = "credits"

// Ledger is implemented by stores that can debit a balance atomically.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	TryDebit(ctx context.Context, userID string, cost int64) (bool, error)
}

// maxBillableSeconds caps pricing at the longest timestamp a subtitle file
// can express.
const maxBillableSeconds = 100 * 3600

// ComputeCost charges one credit per started minute plus one fixed credit.
func ComputeCost(durationSeconds float64) int64 {
	if math.IsNaN(durationSeconds) || durationSeconds < 0 {
		durationSeconds = 0
	}
	durationSeconds = math.Min(durationSeconds, maxBillableSeconds)
	return int64(math.Ceil(durationSeconds/60)) + 1
}

// Debit returns the balance left after paying cost. It must be called
// inside whatever lock or transaction read the balance.
func Debit(balance, cost int64) (int64, error) {
	if cost < 0 {
		return balance, fmt.Errorf("negative cost %d", cost)
	}
	if balance < cost {
		return balance, fmt.Errorf("%w: balance %d, cost %d", models.ErrInsufficientCredits, balance, cost)
	}
	return balance - cost, nil
}
