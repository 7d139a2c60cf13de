package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStore is the admissions portal. Both calls are idempotent on
// its side, so repeating them for the same order is safe.
type ApplicationStore interface {
	MarkPaid(ctx context.Context, userID, orderRef string, amount decimal.Decimal, paidAt time.Time) error
	MarkWithdrawn(ctx context.Context, userID string, refundedAt time.Time) error
}
