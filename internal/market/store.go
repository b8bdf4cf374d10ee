// Package market owns the shared set of active sell listings. All sessions
// read and write one serialized blob. Reconciliation is read-merge-write
// with last-writer-wins, so concurrent writers can clobber each other.
//
// The sale commission is computed and reported but credited to no one.
// Shipped behavior; do not change without product sign-off.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/domain"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrNotOwner        = errors.New("listing belongs to another seller")
	ErrSelfTrade       = errors.New("cannot buy own listing")
	ErrPriceTooLow     = errors.New("ask price below minimum")
	ErrListingLimit    = errors.New("active listing limit reached")
)

const marketplaceKey = "global-marketplace"

// Config carries the marketplace economy knobs.
type Config struct {
	MinSellPrice    int64
	MaxItemsPerUser int
	CommissionRate  float64
}

// Store is one session's view of the shared marketplace.
type Store struct {
	blobs   blob.Store
	cfg     Config
	ownerID string

	listings []domain.Listing
}

// Open loads the shared marketplace blob for the given session owner. A
// missing or corrupt blob yields an empty marketplace.
func Open(ctx context.Context, blobs blob.Store, cfg Config, ownerID string) (*Store, error) {
	s := &Store{blobs: blobs, cfg: cfg, ownerID: ownerID}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload refreshes other sellers' listings from the shared blob while
// preserving this session's own in-memory listings (optimistic local writes
// that may not have been flushed, or that a racing writer overwrote).
func (s *Store) Reload(ctx context.Context) error {
	raw, err := s.blobs.Load(ctx, marketplaceKey)
	if errors.Is(err, blob.ErrNotFound) {
		raw = []byte("[]")
	} else if err != nil {
		return fmt.Errorf("load marketplace: %w", err)
	}

	var global []domain.Listing
	if err := json.Unmarshal(raw, &global); err != nil {
		// A corrupt shared blob resets to empty rather than wedging every
		// session; own pending listings below still survive.
		log.Printf("corrupt marketplace blob, treating as empty: %v", err)
		global = nil
	}

	merged := make([]domain.Listing, 0, len(global))
	for _, l := range global {
		if l.SellerID != s.ownerID {
			merged = append(merged, l)
		}
	}
	for _, l := range s.listings {
		if l.SellerID == s.ownerID {
			merged = append(merged, l)
		}
	}
	s.listings = merged
	return nil
}

// persist writes the full listing set and commits it in memory. On failure
// the previous in-memory set stays authoritative.
func (s *Store) persist(ctx context.Context, listings []domain.Listing) error {
	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encode marketplace: %w", err)
	}
	if err := s.blobs.Save(ctx, marketplaceKey, raw); err != nil {
		return &blob.PersistError{Key: marketplaceKey, Err: err}
	}
	s.listings = listings
	return nil
}

func newListingID(sellerID string, now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("global_%s_%d_%s", sellerID, now.UnixMilli(), suffix)
}

// Seller captures the listing-side identity snapshot.
type Seller struct {
	ID     string
	Name   string
	Rating float64
}

// List creates a listing for the given coin. The caller is responsible for
// having removed the coin from the seller's collection.
func (s *Store) List(ctx context.Context, coin domain.OwnedCoin, askPrice int64, seller Seller, now time.Time) (domain.Listing, error) {
	if askPrice < s.cfg.MinSellPrice {
		return domain.Listing{}, ErrPriceTooLow
	}

	active := 0
	for _, l := range s.listings {
		if l.SellerID == seller.ID {
			active++
		}
	}
	if active >= s.cfg.MaxItemsPerUser {
		return domain.Listing{}, ErrListingLimit
	}

	listing := domain.Listing{
		ID:           newListingID(seller.ID, now),
		Coin:         coin,
		AskPrice:     askPrice,
		SellerID:     seller.ID,
		SellerName:   seller.Name,
		SellerRating: seller.Rating,
		CreatedAt:    now,
	}

	next := append(s.snapshot(), listing)
	if err := s.persist(ctx, next); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// Get returns the listing with the given id.
func (s *Store) Get(listingID string) (domain.Listing, error) {
	for _, l := range s.listings {
		if l.ID == listingID {
			return l, nil
		}
	}
	return domain.Listing{}, ErrListingNotFound
}

// Take removes a listing on behalf of a buyer and returns it together with
// the computed commission. Funds are the caller's concern: the store only
// vacates the slot once the caller has confirmed the buyer can pay.
func (s *Store) Take(ctx context.Context, listingID, buyerID string) (domain.Listing, int64, error) {
	idx := -1
	for i, l := range s.listings {
		if l.ID == listingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Listing{}, 0, ErrListingNotFound
	}

	listing := s.listings[idx]
	if listing.SellerID == buyerID {
		return domain.Listing{}, 0, ErrSelfTrade
	}

	next := s.snapshot()
	next = append(next[:idx], next[idx+1:]...)
	if err := s.persist(ctx, next); err != nil {
		return domain.Listing{}, 0, err
	}

	return listing, Commission(listing.AskPrice, s.cfg.CommissionRate), nil
}

// Cancel removes the requester's own listing and returns the coin snapshot
// unchanged for restoration to their collection.
func (s *Store) Cancel(ctx context.Context, listingID, requesterID string) (domain.OwnedCoin, error) {
	idx := -1
	for i, l := range s.listings {
		if l.ID == listingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.OwnedCoin{}, ErrListingNotFound
	}
	if s.listings[idx].SellerID != requesterID {
		return domain.OwnedCoin{}, ErrNotOwner
	}

	coin := s.listings[idx].Coin
	next := s.snapshot()
	next = append(next[:idx], next[idx+1:]...)
	if err := s.persist(ctx, next); err != nil {
		return domain.OwnedCoin{}, err
	}
	return coin, nil
}

// Restore re-inserts a previously taken listing. It is the compensation hook
// for a buy whose ledger write failed after the listing was already removed.
func (s *Store) Restore(ctx context.Context, listing domain.Listing) error {
	return s.persist(ctx, append(s.snapshot(), listing))
}

// SweepExpired removes every listing whose age has reached maxAge and
// returns the removed set. Sellers get no restitution and no notification;
// known product gap, preserved deliberately.
func (s *Store) SweepExpired(ctx context.Context, now time.Time, maxAge time.Duration) ([]domain.Listing, error) {
	var kept, removed []domain.Listing
	for _, l := range s.listings {
		if now.Sub(l.CreatedAt) >= maxAge {
			removed = append(removed, l)
		} else {
			kept = append(kept, l)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := s.persist(ctx, kept); err != nil {
		return nil, err
	}
	return removed, nil
}

// Listings returns a copy of the current listing set.
func (s *Store) Listings() []domain.Listing {
	return s.snapshot()
}

// Stats summarizes the marketplace for the owning session.
func (s *Store) Stats() domain.MarketStats {
	st := domain.MarketStats{TotalItems: len(s.listings)}
	for _, l := range s.listings {
		st.TotalValue += l.AskPrice
		if l.SellerID == s.ownerID {
			st.OwnItems++
		}
	}
	if st.TotalItems > 0 {
		st.AveragePrice = st.TotalValue / int64(st.TotalItems)
	}
	return st
}

func (s *Store) snapshot() []domain.Listing {
	out := make([]domain.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}
