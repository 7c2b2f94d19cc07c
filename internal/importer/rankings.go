package importer

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"cuprecap/internal/domain"
	"cuprecap/internal/storage/sqlite"

	"gopkg.in/yaml.v3"
)

type rankingsFile struct {
	Rankings []rankingEntry `yaml:"rankings"`
}

type rankingEntry struct {
	Phone            string         `yaml:"phone"`
	TotalCupsRank    int            `yaml:"total_cups_rank"`
	ExplorationRank  int            `yaml:"exploration_rank"`
	ItemRanks        map[string]int `yaml:"item_ranks"`
	TopUserCount     int            `yaml:"top_user_count"`
	TotalCupsTitle   string         `yaml:"total_cups_title"`
	ExplorationTitle string         `yaml:"exploration_title"`
	// ItemTitles use the "title_count" encoding of the ranking feed.
	ItemTitles []string `yaml:"item_titles"`
}

func LoadRankings(path string) ([]sqlite.RankingEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rankings: %w", err)
	}
	return ParseRankings(data)
}

func ParseRankings(data []byte) ([]sqlite.RankingEntry, error) {
	var f rankingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rankings: %w", err)
	}

	out := make([]sqlite.RankingEntry, 0, len(f.Rankings))
	for i, r := range f.Rankings {
		phone := strings.TrimSpace(r.Phone)
		if phone == "" {
			return nil, fmt.Errorf("ranking #%d: phone is required", i+1)
		}
		if r.TotalCupsRank < 0 || r.ExplorationRank < 0 {
			return nil, fmt.Errorf("ranking %s: %w", domain.MaskPhone(phone), domain.ErrInvalidRank)
		}
		e := sqlite.RankingEntry{
			Phone:           phone,
			TotalCupsRank:   r.TotalCupsRank,
			ExplorationRank: r.ExplorationRank,
			ItemRanks:       r.ItemRanks,
			Titles: domain.Titles{
				TopUserCount: r.TopUserCount,
				TotalCups:    r.TotalCupsTitle,
				Exploration:  r.ExplorationTitle,
			},
		}
		for _, raw := range r.ItemTitles {
			t, ok := domain.DecodeItemTitle(strings.TrimSpace(raw))
			if !ok {
				return nil, fmt.Errorf("ranking %s: item title %q is not title_count", domain.MaskPhone(phone), raw)
			}
			e.Titles.Items = append(e.Titles.Items, t)
		}
		out = append(out, e)
	}
	return out, nil
}

func ImportRankings(db *sql.DB, entries []sqlite.RankingEntry) (int, error) {
	for i, e := range entries {
		if err := sqlite.UpsertRanking(db, e); err != nil {
			return i, fmt.Errorf("store ranking %s: %w", domain.MaskPhone(e.Phone), err)
		}
	}
	return len(entries), nil
}
