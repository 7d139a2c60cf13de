package paymentdto

import (
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
)

type CreateOrderOutput struct {
	PaymentURL string
	OrderRef   string
}

type PollOutput struct {
	OrderRef string
	Status   domain.OrderStatus
	// ExpireAt is set only while the order is still payable.
	ExpireAt *time.Time
}

type RefundOutput struct {
	RefundRef string
	Status    domain.OrderStatus
}

type NotifyOutcome string

const (
	NotifyPaid              NotifyOutcome = "paid"
	NotifyClosed            NotifyOutcome = "closed"
	NotifyDuplicate         NotifyOutcome = "duplicate"
	NotifyInProgress        NotifyOutcome = "in_progress"
	NotifyIgnored           NotifyOutcome = "ignored"
	NotifyUnknownOrder      NotifyOutcome = "unknown_order"
	NotifyLatePayment       NotifyOutcome = "late_payment"
	NotifyRejectedSignature NotifyOutcome = "rejected_signature"
	NotifyRejectedPayload   NotifyOutcome = "rejected_payload"
	NotifyRejectedAmount    NotifyOutcome = "rejected_amount"
	NotifyStoreError        NotifyOutcome = "store_error"
)

// NotifyResult tells the webhook endpoint what to answer. Ack=false makes
// the gateway redeliver.
type NotifyResult struct {
	Ack      bool
	Outcome  NotifyOutcome
	OrderRef string
}

type SweepResult struct {
	Scanned   int
	Claimed   int
	Paid      int
	Closed    int
	Released  int
	Skipped   int
	Failed    int
	Recovered int
	Synced    int
}

// ProcessedCount is the number of orders the sweep moved to a terminal state.
func (r SweepResult) ProcessedCount() int {
	return r.Paid + r.Closed
}
