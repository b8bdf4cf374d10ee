package domain

import (
	"time"

	"github.com/scoins/coinmarket/internal/catalog"
)

// OwnedCoin is a concrete coin instance held by a user. It snapshots the
// catalog fields at acquisition time, so a listing stays renderable even if
// the catalog changes between releases.
type OwnedCoin struct {
	DefinitionID  int            `json:"definition_id"`
	Name          string         `json:"name"`
	Rarity        catalog.Rarity `json:"rarity"`
	BasePrice     int64          `json:"base_price"`
	Edition       string         `json:"edition"`
	Icon          string         `json:"icon"`
	InstanceID    string         `json:"instance_id"`
	AcquiredAt    time.Time      `json:"acquired_at"`
	AcquiredPrice int64          `json:"acquired_price"`
	AcquiredFrom  string         `json:"acquired_from"`
}

// Listing is an active sell offer on the shared marketplace. Coin is a value
// snapshot: the seller's OwnedCoin moves into the listing and a new instance
// is synthesized for the buyer on purchase.
type Listing struct {
	ID           string    `json:"id"`
	Coin         OwnedCoin `json:"coin"`
	AskPrice     int64     `json:"ask_price"`
	SellerID     string    `json:"seller_id"`
	SellerName   string    `json:"seller_name"`
	SellerRating float64   `json:"seller_rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats accumulates per-user trading counters and unlocked achievement ids.
type Stats struct {
	TotalBought       int   `json:"total_bought"`
	TotalSold         int   `json:"total_sold"`
	TotalTransactions int   `json:"total_transactions"`
	Achievements      []int `json:"achievements"`
}

// SaveData is the per-user save blob.
type SaveData struct {
	Balance    int64       `json:"balance"`
	Collection []OwnedCoin `json:"collection"`
	Stats      Stats       `json:"stats"`
	Version    string      `json:"version"`
	LastSave   time.Time   `json:"last_save"`
}

// MarketStats summarizes the current marketplace contents.
type MarketStats struct {
	TotalItems   int   `json:"total_items"`
	TotalValue   int64 `json:"total_value"`
	OwnItems     int   `json:"own_items"`
	AveragePrice int64 `json:"average_price"`
}

// PaymentSettings is the payment collaborator's persisted selection state.
type PaymentSettings struct {
	SelectedMethod string    `json:"selected_payment"`
	SelectedAmount int64     `json:"selected_amount"`
	LastUpdated    time.Time `json:"last_updated"`
}

// PaymentRecord is one completed top-up in the append-only payment log.
type PaymentRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}
