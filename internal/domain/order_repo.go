package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByRef(ctx context.Context, orderRef string) (*Order, error)
	// GetLatestOrderByUserID prefers the newest unresolved order and falls
	// back to the newest order of any status.
	GetLatestOrderByUserID(ctx context.Context, userID string) (*Order, error)

	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Order, error)
	FindStaleClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]*Order, error)
	FindApplicationSyncBacklog(ctx context.Context, changedBefore time.Time, limit int) ([]*Order, error)

	// ClaimForProcessing moves PENDING -> PROCESSING. false means another
	// writer changed the status first.
	ClaimForProcessing(ctx context.Context, orderRef, claimToken string, now time.Time) (bool, error)
	ApplyTransition(ctx context.Context, orderRef string, tr Transition) (bool, error)

	// ReserveRefund stores refundRef and the pending amount on a PAID order
	// that has no reservation yet.
	ReserveRefund(ctx context.Context, orderRef, refundRef string, amount decimal.Decimal) (bool, error)
	ReleaseRefund(ctx context.Context, orderRef, refundRef, lastError string) error

	MarkApplicationSynced(ctx context.Context, orderRef string, status OrderStatus) error
	RecordError(ctx context.Context, orderRef, lastError string) error
}
