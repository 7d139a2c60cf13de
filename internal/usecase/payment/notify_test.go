package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerCallback(env *testEnv, payload, ref string, status domain.TradeStatus, amount string) []byte {
	env.gw.callbacks[payload] = &domain.CallbackFields{
		OrderRef:             ref,
		TradeStatus:          status,
		GatewayTransactionID: "TX-" + ref,
		Amount:               decimal.RequireFromString(amount),
		NotifyID:             "notify-" + payload,
		Raw:                  []byte(`{"out_trade_no":"` + ref + `"}`),
	}
	return []byte(payload)
}

func TestWebhookMarksPaidOnceAndIsIdempotent(t *testing.T) {
	env := newTestEnv()
	logs := &fakeNotificationLog{}
	env.uc.NotificationLog = logs
	ctx := context.Background()
	env.seedOrder("ADM-1", "user-1", "100.00")
	payload := registerCallback(env, "paid-1", "ADM-1", domain.TradeSuccess, "100.00")

	res, err := env.uc.HandleCallback(ctx, payload)
	require.NoError(t, err)
	assert.True(t, res.Ack)
	assert.Equal(t, paymentdto.NotifyPaid, res.Outcome)

	poll, err := env.uc.PollStatus(ctx, &paymentdto.PollInput{OrderRef: "ADM-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, poll.Status)
	assert.Nil(t, poll.ExpireAt)
	assert.Equal(t, 0, env.gw.queryCount("ADM-1"), "terminal orders are answered without the gateway")

	stored := env.repo.get("ADM-1")
	assert.Equal(t, "TX-ADM-1", stored.GatewayTransactionID)
	assert.Equal(t, domain.StatusPaid, stored.ApplicationSynced)
	writes := env.repo.transitions

	res, err = env.uc.HandleCallback(ctx, payload)
	require.NoError(t, err)
	assert.True(t, res.Ack)
	assert.Equal(t, paymentdto.NotifyDuplicate, res.Outcome)
	assert.Equal(t, writes, env.repo.transitions, "replay must not write")
	assert.Equal(t, 1, env.apps.paidCount("ADM-1"))

	require.Len(t, logs.entries, 2)
	assert.Equal(t, domain.NotificationHandled, logs.entries[0].Result)
	assert.Equal(t, domain.NotificationIgnored, logs.entries[1].Result)
}

func TestWebhookRejectsBadSignatureWithoutTouchingStore(t *testing.T) {
	env := newTestEnv()
	logs := &fakeNotificationLog{}
	env.uc.NotificationLog = logs
	env.seedOrder("ADM-1", "user-1", "100.00")

	res, err := env.uc.HandleCallback(context.Background(), []byte("out_trade_no=ADM-1&trade_status=TRADE_SUCCESS&sign=forged"))
	assert.ErrorIs(t, err, domain.ErrGatewaySignatureInvalid)
	assert.False(t, res.Ack)
	assert.Equal(t, paymentdto.NotifyRejectedSignature, res.Outcome)
	assert.Equal(t, domain.StatusPending, env.repo.get("ADM-1").Status)
	assert.Zero(t, env.repo.transitions)

	require.Len(t, logs.entries, 1)
	assert.False(t, logs.entries[0].Verified)
	assert.Nil(t, logs.entries[0].Payload)
}

func TestWebhookAmountMismatchNeverTransitions(t *testing.T) {
	for _, status := range []domain.TradeStatus{domain.TradeSuccess, domain.TradeClosed, domain.TradeWaitPayment} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv()
			env.seedOrder("ADM-1", "user-1", "100.00")
			payload := registerCallback(env, "tampered", "ADM-1", status, "0.01")

			res, err := env.uc.HandleCallback(context.Background(), payload)
			assert.ErrorIs(t, err, domain.ErrAmountMismatch)
			assert.False(t, res.Ack)
			assert.Equal(t, paymentdto.NotifyRejectedAmount, res.Outcome)
			assert.Equal(t, domain.StatusPending, env.repo.get("ADM-1").Status)
			assert.Zero(t, env.repo.transitions)
		})
	}
}

func TestWebhookAmountWithinEpsilonIsAccepted(t *testing.T) {
	env := newTestEnv()
	env.seedOrder("ADM-1", "user-1", "100.00")
	payload := registerCallback(env, "p", "ADM-1", domain.TradeSuccess, "100.009")

	res, err := env.uc.HandleCallback(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, paymentdto.NotifyPaid, res.Outcome)
}

func TestWebhookAcknowledgesWithoutWriting(t *testing.T) {
	t.Run("unknown order", func(t *testing.T) {
		env := newTestEnv()
		payload := registerCallback(env, "p", "ADM-404", domain.TradeSuccess, "100.00")
		res, err := env.uc.HandleCallback(context.Background(), payload)
		require.NoError(t, err)
		assert.True(t, res.Ack)
		assert.Equal(t, paymentdto.NotifyUnknownOrder, res.Outcome)
	})

	t.Run("waiting for payment", func(t *testing.T) {
		env := newTestEnv()
		env.seedOrder("ADM-1", "user-1", "100.00")
		payload := registerCallback(env, "p", "ADM-1", domain.TradeWaitPayment, "100.00")
		res, err := env.uc.HandleCallback(context.Background(), payload)
		require.NoError(t, err)
		assert.True(t, res.Ack)
		assert.Equal(t, paymentdto.NotifyIgnored, res.Outcome)
		assert.Zero(t, env.repo.transitions)
	})

	t.Run("order being reconciled", func(t *testing.T) {
		env := newTestEnv()
		env.seedOrder("ADM-1", "user-1", "100.00")
		_, err := env.repo.ClaimForProcessing(context.Background(), "ADM-1", "sweeper", env.clock.Now())
		require.NoError(t, err)
		payload := registerCallback(env, "p", "ADM-1", domain.TradeSuccess, "100.00")

		res, err := env.uc.HandleCallback(context.Background(), payload)
		require.NoError(t, err)
		assert.True(t, res.Ack)
		assert.Equal(t, paymentdto.NotifyInProgress, res.Outcome)
		assert.Equal(t, domain.StatusProcessing, env.repo.get("ADM-1").Status)
	})
}

func TestWebhookLatePaymentOnClosedOrder(t *testing.T) {
	env := newTestEnv()
	env.seedOrder("ADM-1", "user-1", "100.00")
	closedAt := env.clock.Now()
	_, err := env.repo.ApplyTransition(context.Background(), "ADM-1", domain.Transition{
		From: domain.StatusPending, To: domain.StatusClosed, Patch: domain.OrderPatch{ClosedAt: &closedAt},
	})
	require.NoError(t, err)
	payload := registerCallback(env, "late", "ADM-1", domain.TradeSuccess, "100.00")

	res, err := env.uc.HandleCallback(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, res.Ack)
	assert.Equal(t, paymentdto.NotifyLatePayment, res.Outcome)

	stored := env.repo.get("ADM-1")
	assert.Equal(t, domain.StatusClosed, stored.Status)
	assert.Contains(t, stored.LastError, "late payment")
	assert.Zero(t, env.apps.paidCount("ADM-1"))
}

func TestWebhookClosedNotification(t *testing.T) {
	env := newTestEnv()
	pub := &fakePublisher{events: make(chan domain.PaymentEvent, 1)}
	env.uc.Publisher = pub
	env.seedOrder("ADM-1", "user-1", "100.00")
	payload := registerCallback(env, "closed", "ADM-1", domain.TradeClosed, "100.00")

	res, err := env.uc.HandleCallback(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, paymentdto.NotifyClosed, res.Outcome)
	assert.Equal(t, domain.StatusClosed, env.repo.get("ADM-1").Status)

	select {
	case ev := <-pub.events:
		assert.Equal(t, domain.StatusClosed, ev.Status)
		assert.Equal(t, "webhook", ev.Source)
		assert.Equal(t, "user-1", ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("closed event was not published")
	}
}

func TestWebhookStoreFailureAsksForRedelivery(t *testing.T) {
	env := newTestEnv()
	env.seedOrder("ADM-1", "user-1", "100.00")
	env.repo.transitionErr = assert.AnError
	payload := registerCallback(env, "p", "ADM-1", domain.TradeSuccess, "100.00")

	res, err := env.uc.HandleCallback(context.Background(), payload)
	assert.Error(t, err)
	assert.False(t, res.Ack)
	assert.Equal(t, paymentdto.NotifyStoreError, res.Outcome)
}
