package market_test

import (
	"testing"

	"github.com/scoins/coinmarket/internal/catalog"
	"github.com/scoins/coinmarket/internal/market"
	"github.com/stretchr/testify/assert"
)

func TestRecommendedRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		basePrice int64
		rarity    catalog.Rarity
		want      market.PriceRange
	}{
		{"epic mid price", 100, catalog.RarityEpic, market.PriceRange{Min: 50, Max: 900}},
		{"common floor", 5, catalog.RarityCommon, market.PriceRange{Min: 2, Max: 15}},
		{"min never below one", 1, catalog.RarityCommon, market.PriceRange{Min: 1, Max: 3}},
		{"legendary", 300, catalog.RarityLegendary, market.PriceRange{Min: 150, Max: 4500}},
		{"rare", 15, catalog.RarityRare, market.PriceRange{Min: 7, Max: 90}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, market.RecommendedRange(tt.basePrice, tt.rarity))
		})
	}
}

func TestCommission(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 10, market.Commission(200, 0.05))
	assert.EqualValues(t, 0, market.Commission(19, 0.05))
	assert.EqualValues(t, 1, market.Commission(20, 0.05))
	assert.EqualValues(t, 4, market.Commission(99, 0.05))
}

func TestSuggestedAsk(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 120, market.SuggestedAsk(100, 1))
	assert.EqualValues(t, 6, market.SuggestedAsk(5, 1))
	assert.EqualValues(t, 1, market.SuggestedAsk(0, 1))
}
