package market_test

import (
	"testing"
	"time"

	"github.com/scoins/coinmarket/internal/catalog"
	"github.com/scoins/coinmarket/internal/domain"
	"github.com/scoins/coinmarket/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewListing(id string, price int64, rarity catalog.Rarity, createdAt time.Time) domain.Listing {
	return domain.Listing{
		ID:        id,
		Coin:      domain.OwnedCoin{Rarity: rarity},
		AskPrice:  price,
		CreatedAt: createdAt,
	}
}

func ids(listings []domain.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func TestProjectSortCheapest(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	listings := []domain.Listing{
		viewListing("a", 50, catalog.RarityCommon, base),
		viewListing("b", 10, catalog.RarityCommon, base.Add(time.Minute)),
		viewListing("c", 30, catalog.RarityCommon, base.Add(2*time.Minute)),
	}

	got := market.Project(listings, market.Filters{Sort: market.SortCheapest})
	assert.Equal(t, []string{"b", "c", "a"}, ids(got))

	got = market.Project(listings, market.Filters{Sort: market.SortExpensive})
	assert.Equal(t, []string{"a", "c", "b"}, ids(got))
}

func TestProjectNewestIsStable(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	listings := []domain.Listing{
		viewListing("first", 10, catalog.RarityCommon, base),
		viewListing("tie1", 20, catalog.RarityCommon, base.Add(time.Hour)),
		viewListing("tie2", 30, catalog.RarityCommon, base.Add(time.Hour)),
		viewListing("tie3", 40, catalog.RarityCommon, base.Add(time.Hour)),
	}

	got := market.Project(listings, market.Filters{Sort: market.SortNewest})
	// Equal timestamps keep their prior relative order; the oldest sinks.
	assert.Equal(t, []string{"tie1", "tie2", "tie3", "first"}, ids(got))
}

func TestProjectRarityFilter(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	listings := []domain.Listing{
		viewListing("c1", 10, catalog.RarityCommon, base),
		viewListing("e1", 20, catalog.RarityEpic, base.Add(time.Minute)),
		viewListing("c2", 30, catalog.RarityCommon, base.Add(2*time.Minute)),
	}

	got := market.Project(listings, market.Filters{Rarity: "epic"})
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)

	got = market.Project(listings, market.Filters{Rarity: market.RarityAll, Sort: market.SortCheapest})
	assert.Equal(t, []string{"c1", "e1", "c2"}, ids(got))
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	listings := []domain.Listing{
		viewListing("a", 50, catalog.RarityCommon, base),
		viewListing("b", 10, catalog.RarityCommon, base.Add(time.Minute)),
	}

	_ = market.Project(listings, market.Filters{Sort: market.SortCheapest})
	assert.Equal(t, []string{"a", "b"}, ids(listings))
}
