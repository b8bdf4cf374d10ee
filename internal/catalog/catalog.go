package catalog

// Rarity classifies a coin definition. The multiplier feeds the market
// price recommendation and is never enforced against ask prices.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

func (r Rarity) Multiplier() int64 {
	switch r {
	case RarityRare:
		return 2
	case RarityEpic:
		return 3
	case RarityLegendary:
		return 5
	default:
		return 1
	}
}

// Coin is an immutable catalog definition. Instances held by users are
// domain.OwnedCoin snapshots of these.
type Coin struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Rarity      Rarity `json:"rarity"`
	BasePrice   int64  `json:"base_price"`
	Edition     string `json:"edition"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var coins = []Coin{
	{ID: 1, Name: "Bronze SCoin", Rarity: RarityCommon, BasePrice: 5, Edition: "Standard", Description: "Entry coin to start a collection", Icon: "🟫"},
	{ID: 2, Name: "Silver SCoin", Rarity: RarityRare, BasePrice: 15, Edition: "Premium", Description: "Struck from pure silver", Icon: "⚪"},
	{ID: 3, Name: "Gold SCoin", Rarity: RarityEpic, BasePrice: 50, Edition: "Deluxe", Description: "A luxurious gold coin", Icon: "🟡"},
	{ID: 4, Name: "Platinum SCoin", Rarity: RarityLegendary, BasePrice: 100, Edition: "Exclusive", Description: "Exclusive platinum issue", Icon: "🔘"},
	{ID: 5, Name: "Crystal SCoin", Rarity: RarityLegendary, BasePrice: 200, Edition: "Crystal", Description: "Cut from flawless crystal", Icon: "💎"},
	{ID: 6, Name: "Ancient SCoin", Rarity: RarityEpic, BasePrice: 150, Edition: "Ancient", Description: "Relic of a lost civilization", Icon: "🏺"},
	{ID: 7, Name: "Cosmic SCoin", Rarity: RarityLegendary, BasePrice: 300, Edition: "Space", Description: "Alloyed with meteorite dust", Icon: "🚀"},
	{ID: 8, Name: "Arcane SCoin", Rarity: RarityEpic, BasePrice: 250, Edition: "Magic", Description: "Imbued with arcane properties", Icon: "🔮"},
}

// Default returns the full catalog. The returned slice is shared; callers
// must not mutate it.
func Default() []Coin {
	return coins
}

// Size returns the number of distinct coin definitions.
func Size() int {
	return len(coins)
}

// ByID looks up a coin definition by its stable id.
func ByID(id int) (Coin, bool) {
	for _, c := range coins {
		if c.ID == id {
			return c, true
		}
	}
	return Coin{}, false
}
