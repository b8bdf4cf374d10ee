package market

import (
	"math"

	"github.com/scoins/coinmarket/internal/catalog"
)

// PriceRange is the recommended ask band shown to sellers. It is a hint
// only; the store enforces nothing beyond the minimum sell price.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// RecommendedRange computes the suggested ask band from the base price and
// rarity multiplier.
func RecommendedRange(basePrice int64, rarity catalog.Rarity) PriceRange {
	min := basePrice / 2
	if min < 1 {
		min = 1
	}
	return PriceRange{
		Min: min,
		Max: basePrice * rarity.Multiplier() * 3,
	}
}

// Commission is the platform cut on a sale, rounded down.
func Commission(askPrice int64, rate float64) int64 {
	return int64(math.Floor(float64(askPrice) * rate))
}

// SuggestedAsk is the default price pre-filled in the sell flow: 120% of the
// base price, floored at the minimum sell price.
func SuggestedAsk(basePrice, minSellPrice int64) int64 {
	ask := basePrice * 12 / 10
	if ask < minSellPrice {
		return minSellPrice
	}
	return ask
}
