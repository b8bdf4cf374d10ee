package payment_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/config"
	"github.com/scoins/coinmarket/internal/domain"
	"github.com/scoins/coinmarket/internal/payment"
	"github.com/scoins/coinmarket/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		StartingBalance: 100,
		MinTopUp:        15,
		MaxTopUp:        100000,
		MinSellPrice:    1,
		MaxListingsUser: 10,
		CommissionRate:  0.05,
		MaxListingAge:   30 * 24 * time.Hour,
	}
}

func newSystem(t *testing.T, blobs blob.Store) (*payment.System, *session.Session) {
	t.Helper()
	ctx := context.Background()
	sess, err := session.New(ctx, testConfig(), blobs, "user_a", "Anna", session.Options{})
	require.NoError(t, err)
	return payment.New(ctx, testConfig(), blobs, sess, nil), sess
}

func TestStartValidatesBounds(t *testing.T) {
	t.Parallel()

	sys, _ := newSystem(t, blob.NewMemStore())

	_, err := sys.Start(14)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	_, err = sys.Start(100001)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	id, err := sys.Start(100)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestConfirmCreditsExactlyOnce(t *testing.T) {
	t.Parallel()

	blobs := blob.NewMemStore()
	sys, sess := newSystem(t, blobs)
	ctx := context.Background()

	id, err := sys.Start(500)
	require.NoError(t, err)

	require.NoError(t, sys.Confirm(ctx, id))
	assert.EqualValues(t, 600, sess.Balance())

	err = sys.Confirm(ctx, id)
	assert.ErrorIs(t, err, payment.ErrUnknownPayment)
	assert.EqualValues(t, 600, sess.Balance(), "double confirm must not credit twice")

	// The completed payment lands in the log blob.
	raw, err := blobs.Load(ctx, "payment-logs-user_a")
	require.NoError(t, err)
	var logs []domain.PaymentRecord
	require.NoError(t, json.Unmarshal(raw, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, id, logs[0].ID)
	assert.EqualValues(t, 500, logs[0].Amount)
	assert.Equal(t, "completed", logs[0].Status)
}

func TestConcurrentStartAndConfirm(t *testing.T) {
	t.Parallel()

	blobs := blob.NewMemStore()
	sys, sess := newSystem(t, blobs)
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			id, err := sys.Start(15)
			if err != nil {
				return
			}
			_ = sys.Confirm(ctx, id)
			_ = sys.Select(ctx, payment.MethodStars, 100)
			_ = sys.Settings()
		}()
	}
	wg.Wait()

	// Every started payment confirmed exactly once.
	assert.EqualValues(t, 100+15*workers, sess.Balance())
}

func TestSelectPersistsSettings(t *testing.T) {
	t.Parallel()

	blobs := blob.NewMemStore()
	sys, _ := newSystem(t, blobs)
	ctx := context.Background()

	assert.ErrorIs(t, sys.Select(ctx, "paypal", 100), payment.ErrUnknownMethod)

	require.NoError(t, sys.Select(ctx, payment.MethodTon, 300))
	assert.Equal(t, payment.MethodTon, sys.Settings().SelectedMethod)
	assert.EqualValues(t, 300, sys.Settings().SelectedAmount)

	// A fresh system for the same user restores the saved selection.
	reloaded, _ := newSystem(t, blobs)
	assert.Equal(t, payment.MethodTon, reloaded.Settings().SelectedMethod)
}
