package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoData marks favorite/first item fields of a report built from an empty history.
const NoData = "no data"

type ReportRecord struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`

	FirstOrderDate time.Time `json:"firstOrderDate"`
	FirstOrderItem string    `json:"firstOrderItem"`

	FavoriteItem      string `json:"favoriteItem"`
	FavoriteItemCount int    `json:"favoriteItemCount"`
	PreferenceDepth   string `json:"preferenceDepth"`
	FavoriteItemRank  int    `json:"favoriteItemRank"`
	TopUserCount      int    `json:"topUserCount"`

	TotalCups      int    `json:"totalCups"`
	TotalCupsRank  int    `json:"totalCupsRank"`
	TotalCupsTitle string `json:"totalCupsTitle,omitempty"`

	DistinctItemsCount  int      `json:"distinctItemsCount"`
	ExplorationProgress string   `json:"explorationProgress"`
	ExplorationTitle    string   `json:"explorationTitle,omitempty"`
	ExplorationRank     int      `json:"explorationRank"`
	ItemTitles          []string `json:"itemTitles"`

	MonthlyCounts  []int          `json:"monthlyCounts"`
	CategoryCounts CategoryCounts `json:"categoryCounts"`

	Spending Spending `json:"spending"`
}

// Spending is the money view of the same history.
type Spending struct {
	Total      decimal.Decimal              `json:"total"`
	ByCategory map[Category]decimal.Decimal `json:"byCategory"`
	Monthly    []decimal.Decimal            `json:"monthly"`
}

// Rankings carries the population-wide values a single history cannot produce.
type Rankings struct {
	TotalCupsRank    int
	FavoriteItemRank int
	ExplorationRank  int
	Titles           Titles
}

type Titles struct {
	TopUserCount int
	TotalCups    string
	Exploration  string
	Items        []ItemTitle
}

type ItemTitle struct {
	Title string
	Count int
}

// MaxItemTitles caps the number of item titles on a report.
const MaxItemTitles = 5

// Encode renders the title as "title_count".
func (t ItemTitle) Encode() string {
	return t.Title + "_" + strconv.Itoa(t.Count)
}

// DecodeItemTitle splits a "title_count" string. The count is taken after the
// last underscore so titles may contain underscores themselves.
func DecodeItemTitle(s string) (ItemTitle, bool) {
	idx := strings.LastIndex(s, "_")
	if idx <= 0 {
		return ItemTitle{}, false
	}
	n, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return ItemTitle{}, false
	}
	return ItemTitle{Title: s[:idx], Count: n}, true
}
