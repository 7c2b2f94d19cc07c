// Package report turns a customer's order history into the annual report record.
package report

import (
	"fmt"
	"log"
	"sort"

	"cuprecap/internal/domain"

	"github.com/shopspring/decimal"
)

type itemTally struct {
	name string
	cups int
}

// Aggregate computes every statistic that can be derived from one customer's
// orders. Ranks, titles and customer identity are left zero; see Builder.
//
// Orders dated outside the monthly window still count toward all other totals.
// Item lines with a non-positive quantity are ignored. The distinct item count
// never exceeds opts.CatalogSize.
func Aggregate(orders []domain.Order, opts Options) (domain.ReportRecord, error) {
	opts = opts.withDefaults()

	rec := domain.ReportRecord{
		FirstOrderItem:  domain.NoData,
		FavoriteItem:    domain.NoData,
		PreferenceDepth: formatPercent(0, 0),
		ItemTitles:      []string{},
		MonthlyCounts:   make([]int, opts.WindowMonths),
		Spending: domain.Spending{
			Total:      decimal.Zero,
			ByCategory: make(map[domain.Category]decimal.Decimal, len(domain.Categories)),
			Monthly:    make([]decimal.Decimal, opts.WindowMonths),
		},
	}
	for _, c := range domain.Categories {
		rec.Spending.ByCategory[c] = decimal.Zero
	}
	for i := range rec.Spending.Monthly {
		rec.Spending.Monthly[i] = decimal.Zero
	}

	sorted := chronological(orders)
	if len(sorted) > 0 {
		first := sorted[0]
		rec.FirstOrderDate = first.Date.In(opts.Location)
		if len(first.Items) > 0 {
			rec.FirstOrderItem = first.Items[0].Name
		}
	}

	// tallies keeps first-seen order so ties resolve deterministically.
	var tallies []*itemTally
	byName := make(map[string]*itemTally)

	for _, o := range sorted {
		month, inWindow := opts.monthIndex(o.Date)
		rec.Spending.Total = rec.Spending.Total.Add(o.TotalAmount)
		if inWindow {
			rec.Spending.Monthly[month] = rec.Spending.Monthly[month].Add(o.TotalAmount)
		}

		for _, item := range o.Items {
			if item.Quantity <= 0 {
				continue
			}
			if !rec.CategoryCounts.Add(item.Category, item.Quantity) {
				return domain.ReportRecord{}, fmt.Errorf("order %s item %q: %w: %q", o.ID, item.Name, domain.ErrUnknownCategory, item.Category)
			}
			rec.TotalCups += item.Quantity
			if inWindow {
				rec.MonthlyCounts[month] += item.Quantity
			}
			line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			rec.Spending.ByCategory[item.Category] = rec.Spending.ByCategory[item.Category].Add(line)

			t, ok := byName[item.Name]
			if !ok {
				t = &itemTally{name: item.Name}
				byName[item.Name] = t
				tallies = append(tallies, t)
			}
			t.cups += item.Quantity
		}
	}

	// Renamed or seasonal items can push the raw count past the catalog.
	rec.DistinctItemsCount = len(tallies)
	if rec.DistinctItemsCount > opts.CatalogSize {
		log.Printf("distinct items %d exceed catalog size %d; clamping", rec.DistinctItemsCount, opts.CatalogSize)
		rec.DistinctItemsCount = opts.CatalogSize
	}
	rec.ExplorationProgress = fmt.Sprintf("%d/%d", rec.DistinctItemsCount, opts.CatalogSize)

	if fav := favorite(tallies, opts.TieBreak); fav != nil {
		rec.FavoriteItem = fav.name
		rec.FavoriteItemCount = fav.cups
		rec.PreferenceDepth = formatPercent(fav.cups, rec.TotalCups)
	}
	return rec, nil
}

func favorite(tallies []*itemTally, tb TieBreak) *itemTally {
	var best *itemTally
	for _, t := range tallies {
		switch {
		case best == nil, t.cups > best.cups:
			best = t
		case t.cups == best.cups && tb == TieBreakAlphabetical && t.name < best.name:
			best = t
		}
	}
	return best
}

// chronological returns a date-sorted copy; orders sharing a timestamp keep input order.
func chronological(orders []domain.Order) []domain.Order {
	sorted := make([]domain.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func formatPercent(part, total int) string {
	if total <= 0 {
		return "0.00%"
	}
	pct := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total)))
	return pct.StringFixed(2) + "%"
}
