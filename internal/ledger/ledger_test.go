package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/domain"
	"github.com/scoins/coinmarket/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects saves while armed, to exercise the persist-before-
// commit contract.
type failingStore struct {
	*blob.MemStore
	failSaves bool
}

func (s *failingStore) Save(ctx context.Context, key string, data []byte) error {
	if s.failSaves {
		return errors.New("storage quota exceeded")
	}
	return s.MemStore.Save(ctx, key, data)
}

func newLedger(t *testing.T, store blob.Store) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Load(context.Background(), store, "user_test", 100)
	require.NoError(t, err)
	return l
}

func testCoin(instanceID string) domain.OwnedCoin {
	return domain.OwnedCoin{
		DefinitionID:  1,
		Name:          "Bronze SCoin",
		Rarity:        "common",
		BasePrice:     5,
		InstanceID:    instanceID,
		AcquiredAt:    time.Unix(1700000000, 0),
		AcquiredPrice: 5,
		AcquiredFrom:  "shop",
	}
}

func TestCreditDebitRoundTrip(t *testing.T) {
	t.Parallel()

	l := newLedger(t, blob.NewMemStore())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Credit(ctx, now, 50))
	assert.EqualValues(t, 150, l.Balance())

	require.NoError(t, l.Debit(ctx, now, 50))
	assert.EqualValues(t, 100, l.Balance())
}

func TestDebitNeverGoesNegative(t *testing.T) {
	t.Parallel()

	l := newLedger(t, blob.NewMemStore())
	ctx := context.Background()
	now := time.Now()

	err := l.Debit(ctx, now, 101)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.EqualValues(t, 100, l.Balance())

	require.NoError(t, l.Debit(ctx, now, 100))
	assert.EqualValues(t, 0, l.Balance())

	err = l.Debit(ctx, now, 1)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.EqualValues(t, 0, l.Balance())
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	t.Parallel()

	l := newLedger(t, blob.NewMemStore())
	ctx := context.Background()
	now := time.Now()

	assert.ErrorIs(t, l.Credit(ctx, now, 0), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, l.Debit(ctx, now, -5), ledger.ErrInvalidAmount)
}

func TestCollectionOperations(t *testing.T) {
	t.Parallel()

	l := newLedger(t, blob.NewMemStore())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.AddCoin(ctx, now, testCoin("shop_1_a")))
	assert.True(t, l.HasDefinition(1))
	assert.False(t, l.HasDefinition(2))

	// Duplicates per definition are allowed at the ledger level.
	require.NoError(t, l.AddCoin(ctx, now, testCoin("market_2_b")))
	assert.Len(t, l.Collection(), 2)

	removed, err := l.RemoveCoinByInstance(ctx, now, "shop_1_a")
	require.NoError(t, err)
	assert.Equal(t, "shop_1_a", removed.InstanceID)
	assert.Len(t, l.Collection(), 1)

	_, err = l.RemoveCoinByInstance(ctx, now, "shop_1_a")
	assert.ErrorIs(t, err, ledger.ErrCoinNotFound)
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	store := &failingStore{MemStore: blob.NewMemStore()}
	l := newLedger(t, store)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.AddCoin(ctx, now, testCoin("shop_1_a")))

	store.failSaves = true

	var persistErr *blob.PersistError
	err := l.Credit(ctx, now, 500)
	require.Error(t, err)
	assert.ErrorAs(t, err, &persistErr)
	assert.EqualValues(t, 100, l.Balance())

	err = l.Update(ctx, now, func(tx *ledger.Tx) error {
		if _, err := tx.RemoveCoinByInstance("shop_1_a"); err != nil {
			return err
		}
		return tx.Debit(10)
	})
	require.Error(t, err)
	assert.Len(t, l.Collection(), 1, "collection must be untouched after failed save")
	assert.EqualValues(t, 100, l.Balance())
}

func TestLoadRestoresPersistedState(t *testing.T) {
	t.Parallel()

	store := blob.NewMemStore()
	ctx := context.Background()
	now := time.Now()

	l := newLedger(t, store)
	require.NoError(t, l.Credit(ctx, now, 400))
	require.NoError(t, l.AddCoin(ctx, now, testCoin("shop_1_a")))

	reloaded, err := ledger.Load(ctx, store, "user_test", 100)
	require.NoError(t, err)
	assert.EqualValues(t, 500, reloaded.Balance())
	require.Len(t, reloaded.Collection(), 1)
	assert.Equal(t, "shop_1_a", reloaded.Collection()[0].InstanceID)
}

func TestLoadToleratesCorruptBlob(t *testing.T) {
	t.Parallel()

	store := blob.NewMemStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "save-user_test", []byte("{not json")))

	l, err := ledger.Load(ctx, store, "user_test", 100)
	require.NoError(t, err)
	assert.EqualValues(t, 100, l.Balance())
	assert.Empty(t, l.Collection())
}
