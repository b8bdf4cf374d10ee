// Seeder populates the shared marketplace blob with demo listings so local
// frontends have something to render against a fresh store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/catalog"
	"github.com/scoins/coinmarket/internal/config"
	"github.com/scoins/coinmarket/internal/domain"
	"github.com/scoins/coinmarket/internal/market"
)

const marketplaceKey = "global-marketplace"

var demoSellers = []struct {
	ID     string
	Name   string
	Rating float64
}{
	{"user_seed_anna", "Anna", 4.8},
	{"user_seed_boris", "Boris", 4.6},
	{"user_seed_clara", "Clara", 5.0},
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}

	var blobs blob.Store
	if cfg.DBSource != "" {
		pg, err := blob.NewPostgresStore(ctx, cfg.DBSource)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pg.Close()
		blobs = pg
	} else {
		fs, err := blob.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("Unable to prepare data dir: %v", err)
		}
		blobs = fs
	}

	log.Println("--- Seeding Marketplace ---")

	// Skip if the blob already has listings.
	if raw, err := blobs.Load(ctx, marketplaceKey); err == nil {
		var existing []domain.Listing
		if json.Unmarshal(raw, &existing) == nil && len(existing) > 0 {
			log.Printf("Marketplace already has %d listings. Skipping.", len(existing))
			return
		}
	} else if !errors.Is(err, blob.ErrNotFound) {
		log.Fatalf("Unable to read marketplace blob: %v", err)
	}

	now := time.Now()
	var listings []domain.Listing
	for i, def := range catalog.Default() {
		seller := demoSellers[i%len(demoSellers)]
		created := now.Add(-time.Duration(i) * time.Hour)
		coin := domain.OwnedCoin{
			DefinitionID:  def.ID,
			Name:          def.Name,
			Rarity:        def.Rarity,
			BasePrice:     def.BasePrice,
			Edition:       def.Edition,
			Icon:          def.Icon,
			InstanceID:    fmt.Sprintf("shop_%d_%s", created.UnixMilli(), uuid.NewString()[:8]),
			AcquiredAt:    created,
			AcquiredPrice: def.BasePrice,
			AcquiredFrom:  "shop",
		}
		listings = append(listings, domain.Listing{
			ID:           fmt.Sprintf("global_%s_%d_%s", seller.ID, created.UnixMilli(), uuid.NewString()[:8]),
			Coin:         coin,
			AskPrice:     market.SuggestedAsk(def.BasePrice, cfg.MinSellPrice),
			SellerID:     seller.ID,
			SellerName:   seller.Name,
			SellerRating: seller.Rating,
			CreatedAt:    created,
		})
	}

	raw, err := json.Marshal(listings)
	if err != nil {
		log.Fatalf("Encoding failed: %v", err)
	}
	if err := blobs.Save(ctx, marketplaceKey, raw); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Successfully seeded %d listings.", len(listings))
}
