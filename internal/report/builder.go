package report

import (
	"fmt"
	"log"
	"strings"

	"cuprecap/internal/domain"
)

// Builder assembles full report records: local aggregation plus the
// population ranks supplied by the ranking collaborator.
type Builder struct {
	ranking domain.RankingService
	opts    Options
}

// NewBuilder returns a Builder. A nil ranking service leaves every rank and
// title at its zero value.
func NewBuilder(ranking domain.RankingService, opts Options) *Builder {
	return &Builder{ranking: ranking, opts: opts.withDefaults()}
}

func (b *Builder) Options() Options {
	return b.opts
}

func (b *Builder) Build(customer domain.Customer, orders []domain.Order) (domain.ReportRecord, error) {
	rec, err := Aggregate(orders, b.opts)
	if err != nil {
		return domain.ReportRecord{}, err
	}
	rec.PhoneNumber = customer.Phone
	rec.Name = customer.Name

	rankings, err := b.rankings(customer.Phone, rec.FavoriteItem)
	if err != nil {
		return domain.ReportRecord{}, fmt.Errorf("ranking lookup for %s: %w", customer.Phone, err)
	}
	applyRankings(&rec, rankings)

	log.Printf("report built phone=%s orders=%d cups=%d distinct=%d total_rank=%d",
		domain.MaskPhone(customer.Phone), len(orders), rec.TotalCups, rec.DistinctItemsCount, rec.TotalCupsRank)
	return rec, nil
}

func (b *Builder) rankings(phone, favorite string) (domain.Rankings, error) {
	var r domain.Rankings
	if b.ranking == nil {
		return r, nil
	}
	var err error
	if r.TotalCupsRank, err = b.ranking.TotalCupsRank(phone); err != nil {
		return r, err
	}
	if favorite != domain.NoData {
		if r.FavoriteItemRank, err = b.ranking.FavoriteItemRank(phone, favorite); err != nil {
			return r, err
		}
	}
	if r.ExplorationRank, err = b.ranking.ExplorationRank(phone); err != nil {
		return r, err
	}
	if r.Titles, err = b.ranking.Titles(phone); err != nil {
		return r, err
	}
	return r, nil
}

func applyRankings(rec *domain.ReportRecord, r domain.Rankings) {
	rec.TotalCupsRank = r.TotalCupsRank
	rec.FavoriteItemRank = r.FavoriteItemRank
	rec.ExplorationRank = r.ExplorationRank
	rec.TopUserCount = r.Titles.TopUserCount
	rec.TotalCupsTitle = strings.TrimSpace(r.Titles.TotalCups)
	rec.ExplorationTitle = strings.TrimSpace(r.Titles.Exploration)

	rec.ItemTitles = rec.ItemTitles[:0]
	for _, t := range r.Titles.Items {
		if len(rec.ItemTitles) == domain.MaxItemTitles {
			break
		}
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		rec.ItemTitles = append(rec.ItemTitles, t.Encode())
	}
}
