// Package ledger owns the per-user economic state: star balance, coin
// collection and trading stats. Mutations stage the new state, write the
// save blob, then swap it in. A failed save leaves memory unchanged.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/config"
	"github.com/scoins/coinmarket/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCoinNotFound      = errors.New("coin not found in collection")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type Ledger struct {
	userID string
	store  blob.Store

	balance    int64
	collection []domain.OwnedCoin
	stats      domain.Stats
}

func saveKey(userID string) string { return "save-" + userID }

// Load restores a user's ledger from its save blob. An absent blob yields a
// fresh ledger with the starting balance; a corrupt one is reset the same
// way rather than failing the session.
func Load(ctx context.Context, store blob.Store, userID string, startingBalance int64) (*Ledger, error) {
	l := &Ledger{
		userID:  userID,
		store:   store,
		balance: startingBalance,
	}

	raw, err := store.Load(ctx, saveKey(userID))
	if errors.Is(err, blob.ErrNotFound) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load save for %s: %w", userID, err)
	}

	var data domain.SaveData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("corrupt save blob for %s, resetting: %v", userID, err)
		return l, nil
	}
	if data.Version != config.Version {
		// Migration hook; currently nothing to migrate.
		log.Printf("save for %s has version %s, current %s", userID, data.Version, config.Version)
	}

	l.balance = data.Balance
	l.collection = data.Collection
	l.stats = data.Stats
	return l, nil
}

// Tx is the staged state a mutation works on. Changes become visible (and
// durable) only when the enclosing Update persists successfully.
type Tx struct {
	Balance    int64
	Collection []domain.OwnedCoin
	Stats      domain.Stats
}

func (t *Tx) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	t.Balance += amount
	return nil
}

func (t *Tx) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Balance < amount {
		return ErrInsufficientFunds
	}
	t.Balance -= amount
	return nil
}

// AddCoin appends to the collection. No uniqueness check: marketplace
// acquisitions may duplicate a definition.
func (t *Tx) AddCoin(coin domain.OwnedCoin) {
	t.Collection = append(t.Collection, coin)
}

func (t *Tx) RemoveCoinByInstance(instanceID string) (domain.OwnedCoin, error) {
	for i, c := range t.Collection {
		if c.InstanceID == instanceID {
			t.Collection = append(t.Collection[:i], t.Collection[i+1:]...)
			return c, nil
		}
	}
	return domain.OwnedCoin{}, ErrCoinNotFound
}

// Update runs fn against a staged copy of the ledger state, persists the
// result, and commits it in memory. If fn or the save fails, the ledger is
// untouched and the error is returned (a *blob.PersistError for saves).
func (l *Ledger) Update(ctx context.Context, now time.Time, fn func(*Tx) error) error {
	tx := &Tx{
		Balance:    l.balance,
		Collection: cloneCoins(l.collection),
		Stats:      cloneStats(l.stats),
	}
	if err := fn(tx); err != nil {
		return err
	}

	data := domain.SaveData{
		Balance:    tx.Balance,
		Collection: tx.Collection,
		Stats:      tx.Stats,
		Version:    config.Version,
		LastSave:   now,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode save for %s: %w", l.userID, err)
	}
	if err := l.store.Save(ctx, saveKey(l.userID), raw); err != nil {
		return &blob.PersistError{Key: saveKey(l.userID), Err: err}
	}

	l.balance = tx.Balance
	l.collection = tx.Collection
	l.stats = tx.Stats
	return nil
}

// Credit adds to the balance and persists.
func (l *Ledger) Credit(ctx context.Context, now time.Time, amount int64) error {
	return l.Update(ctx, now, func(tx *Tx) error {
		return tx.Credit(amount)
	})
}

// Debit withdraws from the balance and persists.
func (l *Ledger) Debit(ctx context.Context, now time.Time, amount int64) error {
	return l.Update(ctx, now, func(tx *Tx) error {
		return tx.Debit(amount)
	})
}

// AddCoin appends a coin to the collection and persists.
func (l *Ledger) AddCoin(ctx context.Context, now time.Time, coin domain.OwnedCoin) error {
	return l.Update(ctx, now, func(tx *Tx) error {
		tx.AddCoin(coin)
		return nil
	})
}

// RemoveCoinByInstance removes and returns the matching coin, persisting the
// shrunk collection.
func (l *Ledger) RemoveCoinByInstance(ctx context.Context, now time.Time, instanceID string) (domain.OwnedCoin, error) {
	var removed domain.OwnedCoin
	err := l.Update(ctx, now, func(tx *Tx) error {
		var txErr error
		removed, txErr = tx.RemoveCoinByInstance(instanceID)
		return txErr
	})
	if err != nil {
		return domain.OwnedCoin{}, err
	}
	return removed, nil
}

// HasDefinition reports whether any owned coin has the given definition id.
// Only the primary-shop purchase path uses this; marketplace purchases allow
// duplicates.
func (l *Ledger) HasDefinition(definitionID int) bool {
	for _, c := range l.collection {
		if c.DefinitionID == definitionID {
			return true
		}
	}
	return false
}

// CoinByInstance returns the owned coin with the given instance id.
func (l *Ledger) CoinByInstance(instanceID string) (domain.OwnedCoin, bool) {
	for _, c := range l.collection {
		if c.InstanceID == instanceID {
			return c, true
		}
	}
	return domain.OwnedCoin{}, false
}

func (l *Ledger) Balance() int64 { return l.balance }

func (l *Ledger) Collection() []domain.OwnedCoin {
	return cloneCoins(l.collection)
}

func (l *Ledger) Stats() domain.Stats {
	return cloneStats(l.stats)
}

func cloneCoins(coins []domain.OwnedCoin) []domain.OwnedCoin {
	out := make([]domain.OwnedCoin, len(coins))
	copy(out, coins)
	return out
}

func cloneStats(s domain.Stats) domain.Stats {
	out := s
	out.Achievements = make([]int, len(s.Achievements))
	copy(out.Achievements, s.Achievements)
	return out
}
