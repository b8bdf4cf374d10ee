// Package achievements evaluates unlock predicates over a read-only snapshot
// of the ledger. Evaluation is idempotent: an already-unlocked achievement
// never fires again.
package achievements

import (
	"github.com/scoins/coinmarket/internal/domain"
)

// Snapshot is the read-only state achievements are judged against.
type Snapshot struct {
	Balance     int64
	Collection  []domain.OwnedCoin
	Stats       domain.Stats
	CatalogSize int
}

// Achievement pairs an id with its unlock predicate. Definition order is
// evaluation order.
type Achievement struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    func(Snapshot) bool `json:"-"`
}

// Defaults returns the built-in achievement set.
func Defaults() []Achievement {
	return []Achievement{
		{
			ID: 1, Name: "Novice Collector", Description: "Collect 5 coins", Icon: "🎯",
			Unlocked: func(s Snapshot) bool { return len(s.Collection) >= 5 },
		},
		{
			ID: 2, Name: "Seasoned Trader", Description: "Sell 10 coins on the market", Icon: "💰",
			Unlocked: func(s Snapshot) bool { return s.Stats.TotalSold >= 10 },
		},
		{
			ID: 3, Name: "Millionaire", Description: "Hold a balance of 1000 stars", Icon: "💎",
			Unlocked: func(s Snapshot) bool { return s.Balance >= 1000 },
		},
		{
			ID: 4, Name: "Market Legend", Description: "Buy 5 coins from the market", Icon: "🏆",
			Unlocked: func(s Snapshot) bool { return s.Stats.TotalBought >= 5 },
		},
		{
			ID: 5, Name: "Full Collection", Description: "Own every coin type", Icon: "⭐",
			Unlocked: func(s Snapshot) bool {
				seen := make(map[int]struct{}, len(s.Collection))
				for _, c := range s.Collection {
					seen[c.DefinitionID] = struct{}{}
				}
				return s.CatalogSize > 0 && len(seen) >= s.CatalogSize
			},
		},
	}
}

// Evaluate returns the ids newly unlocked by the snapshot, in definition
// order. Ids already in unlocked are skipped.
func Evaluate(defs []Achievement, snap Snapshot, unlocked []int) []int {
	have := make(map[int]struct{}, len(unlocked))
	for _, id := range unlocked {
		have[id] = struct{}{}
	}

	var newly []int
	for _, a := range defs {
		if _, ok := have[a.ID]; ok {
			continue
		}
		if a.Unlocked(snap) {
			newly = append(newly, a.ID)
		}
	}
	return newly
}
