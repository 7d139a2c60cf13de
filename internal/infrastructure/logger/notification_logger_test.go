package logger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLogger(t *testing.T) *PGNotificationLogger {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "logs.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&PaymentNotificationLog{}))
	return NewPGNotificationLogger(db)
}

func TestLogNotification(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()
	received := time.Date(2026, 10, 15, 9, 5, 0, 0, time.UTC)

	handled := &domain.NotificationLog{
		OrderRef:             "ADM-1",
		GatewayTransactionID: "TX-1",
		TradeStatus:          domain.TradeSuccess,
		Amount:               "100.00",
		Verified:             true,
		Result:               domain.NotificationHandled,
		Reason:               "paid",
		Payload:              []byte(`{"out_trade_no":"ADM-1"}`),
		ReceivedAt:           received,
	}
	require.NoError(t, l.LogNotification(ctx, handled))
	assert.NotEmpty(t, handled.ID)

	duplicate := *handled
	duplicate.ID = ""
	duplicate.Result = domain.NotificationIgnored
	duplicate.Reason = "duplicate"
	duplicate.ReceivedAt = received.Add(time.Minute)
	require.NoError(t, l.LogNotification(ctx, &duplicate))

	logs, err := l.ListByOrderRef(ctx, "ADM-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.NotificationHandled, logs[0].Result)
	assert.Equal(t, domain.NotificationIgnored, logs[1].Result)
	assert.JSONEq(t, `{"out_trade_no":"ADM-1"}`, string(logs[0].Payload))
	assert.NotEqual(t, logs[0].ID, logs[1].ID)
}

func TestLogNotificationDropsUnverifiedPayload(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()

	require.NoError(t, l.LogNotification(ctx, &domain.NotificationLog{
		OrderRef:   "ADM-2",
		Verified:   false,
		Result:     domain.NotificationRejected,
		Reason:     "gateway signature invalid",
		Payload:    []byte("not json at all"),
		ReceivedAt: time.Now().UTC(),
	}))

	logs, err := l.ListByOrderRef(ctx, "ADM-2")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Verified)
	assert.Empty(t, logs[0].Payload)
}
