package domain

import "github.com/shopspring/decimal"

// Rank is the Team tier of a member, 1 (Ambassador) through 5 (Manager).
type Rank int

const (
	RankAmbassador       Rank = 1
	RankBronzeAmbassador Rank = 2
	RankSilverAmbassador Rank = 3
	RankGoldAmbassador   Rank = 4
	RankManager          Rank = 5
)

// RankThreshold is the minimum cumulative sales for a rank.
type RankThreshold struct {
	MinSales decimal.Decimal
	Rank     Rank
}

// RankThresholds is ordered from the highest rank down; the first match wins.
var RankThresholds = []RankThreshold{
	{decimal.NewFromInt(100), RankManager},
	{decimal.NewFromInt(50), RankGoldAmbassador},
	{decimal.NewFromInt(25), RankSilverAmbassador},
	{decimal.NewFromInt(10), RankBronzeAmbassador},
	{decimal.Zero, RankAmbassador},
}

// RankForSales derives the rank from cumulative sales.
func RankForSales(totalSales decimal.Decimal) Rank {
	for _, t := range RankThresholds {
		if totalSales.GreaterThanOrEqual(t.MinSales) {
			return t.Rank
		}
	}
	return RankAmbassador
}

var rankTitles = map[Rank]string{
	RankAmbassador:       "Ambassador",
	RankBronzeAmbassador: "Bronze Ambassador",
	RankSilverAmbassador: "Silver Ambassador",
	RankGoldAmbassador:   "Gold Ambassador",
	RankManager:          "Manager",
}

func (r Rank) Title() string {
	if t, ok := rankTitles[r]; ok {
		return t
	}
	return "Unknown"
}

func (r Rank) Valid() bool {
	return r >= RankAmbassador && r <= RankManager
}
