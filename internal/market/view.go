package market

import (
	"sort"

	"github.com/scoins/coinmarket/internal/catalog"
	"github.com/scoins/coinmarket/internal/domain"
)

const (
	SortNewest    = "newest"
	SortCheapest  = "cheapest"
	SortExpensive = "expensive"

	RarityAll = "all"
)

// Filters selects and orders the displayed subset of listings.
type Filters struct {
	Rarity string `json:"rarity"`
	Sort   string `json:"sort"`
}

// Project derives the displayed listing sequence. It never mutates its
// input; sorting is stable so equal keys keep their prior relative order.
func Project(listings []domain.Listing, f Filters) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Rarity != "" && f.Rarity != RarityAll && l.Coin.Rarity != catalog.Rarity(f.Rarity) {
			continue
		}
		out = append(out, l)
	}

	switch f.Sort {
	case SortCheapest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].AskPrice < out[j].AskPrice })
	case SortExpensive:
		sort.SliceStable(out, func(i, j int) bool { return out[i].AskPrice > out[j].AskPrice })
	default: // newest
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}
