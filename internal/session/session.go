// Package session is the command layer: one context object per user holding
// the ledger, the shared marketplace view and the achievement set. Every
// mutating command, including sweep and autosave, runs to completion under
// one mutex.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scoins/coinmarket/internal/achievements"
	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/catalog"
	"github.com/scoins/coinmarket/internal/config"
	"github.com/scoins/coinmarket/internal/domain"
	"github.com/scoins/coinmarket/internal/ledger"
	"github.com/scoins/coinmarket/internal/market"
)

var (
	ErrUnknownCoin   = errors.New("unknown coin definition")
	ErrAlreadyOwned  = errors.New("coin already in collection")
	ErrInvalidAmount = errors.New("top-up amount out of bounds")
)

const acquiredFromShop = "shop"

// Session ties one user's economic state to the shared marketplace.
type Session struct {
	mu sync.Mutex

	cfg    *config.Config
	clock  Clock
	ledger *ledger.Ledger
	market *market.Store
	defs   []achievements.Achievement
	sink   Sink

	userID   string
	userName string
}

// Options tune session construction. Zero values fall back to the system
// clock, default achievements and a discarding event sink.
type Options struct {
	Clock Clock
	Sink  Sink
	Defs  []achievements.Achievement
}

// New loads (or initializes) the user's ledger and the shared marketplace
// and returns the session context.
func New(ctx context.Context, cfg *config.Config, blobs blob.Store, userID, userName string, opts Options) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Sink == nil {
		opts.Sink = SinkFunc(func(Event) {})
	}
	if opts.Defs == nil {
		opts.Defs = achievements.Defaults()
	}

	led, err := ledger.Load(ctx, blobs, userID, cfg.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", userID, err)
	}

	mkt, err := market.Open(ctx, blobs, market.Config{
		MinSellPrice:    cfg.MinSellPrice,
		MaxItemsPerUser: cfg.MaxListingsUser,
		CommissionRate:  cfg.CommissionRate,
	}, userID)
	if err != nil {
		return nil, fmt.Errorf("open marketplace for %s: %w", userID, err)
	}

	return &Session{
		cfg:      cfg,
		clock:    opts.Clock,
		ledger:   led,
		market:   mkt,
		defs:     opts.Defs,
		sink:     opts.Sink,
		userID:   userID,
		userName: userName,
	}, nil
}

func (s *Session) UserID() string   { return s.userID }
func (s *Session) UserName() string { return s.userName }

// Rating derives the seller rating snapshot: a base of 4.5 plus up to 0.5
// for trading activity, one decimal place.
func (s *Session) Rating() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rating()
}

func (s *Session) rating() float64 {
	bonus := float64(s.ledger.Stats().TotalTransactions) * 0.1
	if bonus > 0.5 {
		bonus = 0.5
	}
	return math.Round((4.5+bonus)*10) / 10
}

func newInstanceID(prefix string, now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}

// BuyFromShop purchases a coin from the primary catalog. The shop enforces
// at most one owned coin per definition; the marketplace does not. The
// asymmetry is intentional.
func (s *Session) BuyFromShop(ctx context.Context, definitionID int) (domain.OwnedCoin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := catalog.ByID(definitionID)
	if !ok {
		return domain.OwnedCoin{}, ErrUnknownCoin
	}
	if s.ledger.HasDefinition(definitionID) {
		return domain.OwnedCoin{}, ErrAlreadyOwned
	}

	now := s.clock.Now()
	coin := domain.OwnedCoin{
		DefinitionID:  def.ID,
		Name:          def.Name,
		Rarity:        def.Rarity,
		BasePrice:     def.BasePrice,
		Edition:       def.Edition,
		Icon:          def.Icon,
		InstanceID:    newInstanceID("shop", now),
		AcquiredAt:    now,
		AcquiredPrice: def.BasePrice,
		AcquiredFrom:  acquiredFromShop,
	}

	var newly []int
	err := s.ledger.Update(ctx, now, func(tx *ledger.Tx) error {
		if err := tx.Debit(def.BasePrice); err != nil {
			return err
		}
		tx.AddCoin(coin)
		tx.Stats.TotalTransactions++
		newly = s.evaluate(tx)
		return nil
	})
	if err != nil {
		return domain.OwnedCoin{}, err
	}

	s.emit(EventBalanceChanged, s.ledger.Balance())
	s.emit(EventCoinAcquired, coin)
	s.emitUnlocks(newly)
	return coin, nil
}

// ListForSale moves a coin from the collection onto the shared marketplace.
func (s *Session) ListForSale(ctx context.Context, instanceID string, askPrice int64) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coin, ok := s.ledger.CoinByInstance(instanceID)
	if !ok {
		return domain.Listing{}, ledger.ErrCoinNotFound
	}

	now := s.clock.Now()
	listing, err := s.market.List(ctx, coin, askPrice, market.Seller{
		ID:     s.userID,
		Name:   s.userName,
		Rating: s.rating(),
	}, now)
	if err != nil {
		return domain.Listing{}, err
	}

	var newly []int
	err = s.ledger.Update(ctx, now, func(tx *ledger.Tx) error {
		if _, err := tx.RemoveCoinByInstance(instanceID); err != nil {
			return err
		}
		newly = s.evaluate(tx)
		return nil
	})
	if err != nil {
		// The listing is already on the market; take it back so the coin is
		// not owned in two places.
		if _, cancelErr := s.market.Cancel(ctx, listing.ID, s.userID); cancelErr != nil {
			log.Printf("rollback of listing %s failed: %v", listing.ID, cancelErr)
		}
		return domain.Listing{}, err
	}

	s.emit(EventListingCreated, listing)
	s.emitUnlocks(newly)
	return listing, nil
}

// PurchaseResult reports a completed marketplace buy.
type PurchaseResult struct {
	Coin       domain.OwnedCoin `json:"coin"`
	Commission int64            `json:"commission"`
	PaidPrice  int64            `json:"paid_price"`
}

// BuyListing purchases another seller's listing. The buyer pays the full ask
// price; the commission is computed and reported but routed to no one
// (preserved source behavior, flagged in the market package doc).
func (s *Session) BuyListing(ctx context.Context, listingID string) (PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.market.Reload(ctx); err != nil {
		return PurchaseResult{}, err
	}

	listing, err := s.market.Get(listingID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if listing.SellerID == s.userID {
		return PurchaseResult{}, market.ErrSelfTrade
	}
	if s.ledger.Balance() < listing.AskPrice {
		return PurchaseResult{}, ledger.ErrInsufficientFunds
	}

	taken, commission, err := s.market.Take(ctx, listingID, s.userID)
	if err != nil {
		return PurchaseResult{}, err
	}

	now := s.clock.Now()
	coin := taken.Coin
	coin.InstanceID = newInstanceID("market", now)
	coin.AcquiredAt = now
	coin.AcquiredPrice = taken.AskPrice
	coin.AcquiredFrom = taken.SellerName

	var newly []int
	err = s.ledger.Update(ctx, now, func(tx *ledger.Tx) error {
		if err := tx.Debit(taken.AskPrice); err != nil {
			return err
		}
		tx.AddCoin(coin)
		tx.Stats.TotalBought++
		tx.Stats.TotalTransactions++
		newly = s.evaluate(tx)
		return nil
	})
	if err != nil {
		// Listing already vacated; put it back so it is not lost.
		if restoreErr := s.market.Restore(ctx, taken); restoreErr != nil {
			log.Printf("restore of listing %s failed: %v", taken.ID, restoreErr)
		}
		return PurchaseResult{}, err
	}

	s.emit(EventBalanceChanged, s.ledger.Balance())
	s.emit(EventCoinAcquired, coin)
	s.emit(EventListingRemoved, taken.ID)
	s.emitUnlocks(newly)
	return PurchaseResult{Coin: coin, Commission: commission, PaidPrice: taken.AskPrice}, nil
}

// CancelListing withdraws the user's own listing; the coin returns to the
// collection unchanged.
func (s *Session) CancelListing(ctx context.Context, listingID string) (domain.OwnedCoin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coin, err := s.market.Cancel(ctx, listingID, s.userID)
	if err != nil {
		return domain.OwnedCoin{}, err
	}

	now := s.clock.Now()
	var newly []int
	err = s.ledger.Update(ctx, now, func(tx *ledger.Tx) error {
		tx.AddCoin(coin)
		newly = s.evaluate(tx)
		return nil
	})
	if err != nil {
		return domain.OwnedCoin{}, err
	}

	s.emit(EventListingRemoved, listingID)
	s.emitUnlocks(newly)
	return coin, nil
}

// TopUp credits the balance after a completed (simulated) payment.
func (s *Session) TopUp(ctx context.Context, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.ValidTopUp(amount) {
		return ErrInvalidAmount
	}

	now := s.clock.Now()
	var newly []int
	err := s.ledger.Update(ctx, now, func(tx *ledger.Tx) error {
		if err := tx.Credit(amount); err != nil {
			return err
		}
		tx.Stats.TotalTransactions++
		newly = s.evaluate(tx)
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(EventBalanceChanged, s.ledger.Balance())
	s.emitUnlocks(newly)
	return nil
}

// Sweep removes expired listings. Driven by the periodic timer in cmd/api
// and serialized with user commands through the session mutex.
func (s *Session) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.market.SweepExpired(ctx, s.clock.Now(), s.cfg.MaxListingAge)
	if err != nil {
		return 0, err
	}
	for _, l := range removed {
		s.emit(EventListingRemoved, l.ID)
	}
	return len(removed), nil
}

// Save flushes both blobs. Used by the autosave timer; a persist failure is
// returned but leaves in-memory state authoritative.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Update(ctx, s.clock.Now(), func(*ledger.Tx) error { return nil }); err != nil {
		return err
	}
	return s.market.Reload(ctx)
}

// MarketplaceView reloads the shared blob and projects it through filters.
func (s *Session) MarketplaceView(ctx context.Context, f market.Filters) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.market.Reload(ctx); err != nil {
		return nil, err
	}
	return market.Project(s.market.Listings(), f), nil
}

func (s *Session) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance()
}

func (s *Session) Collection() []domain.OwnedCoin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Collection()
}

func (s *Session) Stats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Stats()
}

func (s *Session) MarketStats() domain.MarketStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.Stats()
}

// evaluate runs the achievement predicates against the staged state and
// appends newly unlocked ids so they persist in the same transaction.
func (s *Session) evaluate(tx *ledger.Tx) []int {
	newly := achievements.Evaluate(s.defs, achievements.Snapshot{
		Balance:     tx.Balance,
		Collection:  tx.Collection,
		Stats:       tx.Stats,
		CatalogSize: catalog.Size(),
	}, tx.Stats.Achievements)
	tx.Stats.Achievements = append(tx.Stats.Achievements, newly...)
	return newly
}

func (s *Session) emit(eventType string, payload any) {
	s.sink.Publish(Event{
		Type:    eventType,
		UserID:  s.userID,
		At:      s.clock.Now(),
		Payload: payload,
	})
}

func (s *Session) emitUnlocks(ids []int) {
	for _, id := range ids {
		s.emit(EventAchievementUnlocked, id)
	}
}
