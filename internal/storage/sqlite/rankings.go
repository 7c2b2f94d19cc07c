package sqlite

import (
	"database/sql"
	"errors"

	"cuprecap/internal/domain"
)

// RankingEntry is one customer's row from the population ranking feed.
type RankingEntry struct {
	Phone           string
	TotalCupsRank   int
	ExplorationRank int
	ItemRanks       map[string]int
	Titles          domain.Titles
}

func UpsertRanking(db *sql.DB, e RankingEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO customer_rankings (phone, total_cups_rank, exploration_rank, top_user_count, total_cups_title, exploration_title)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET
			total_cups_rank   = excluded.total_cups_rank,
			exploration_rank  = excluded.exploration_rank,
			top_user_count    = excluded.top_user_count,
			total_cups_title  = excluded.total_cups_title,
			exploration_title = excluded.exploration_title`,
		e.Phone, e.TotalCupsRank, e.ExplorationRank, e.Titles.TopUserCount, e.Titles.TotalCups, e.Titles.Exploration,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM item_rankings WHERE phone = ?`, e.Phone); err != nil {
		return err
	}
	for item, rank := range e.ItemRanks {
		if _, err := tx.Exec(`INSERT INTO item_rankings (phone, item, rank) VALUES (?, ?, ?)`, e.Phone, item, rank); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM item_titles WHERE phone = ?`, e.Phone); err != nil {
		return err
	}
	for i, t := range e.Titles.Items {
		if _, err := tx.Exec(`INSERT INTO item_titles (phone, position, title, count) VALUES (?, ?, ?, ?)`, e.Phone, i, t.Title, t.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RankingStore serves imported population rankings. Phones without an entry
// get zero ranks and no titles.
type RankingStore struct {
	db *sql.DB
}

func NewRankingStore(db *sql.DB) *RankingStore {
	return &RankingStore{db: db}
}

func (s *RankingStore) TotalCupsRank(phone string) (int, error) {
	return s.intColumn(`SELECT total_cups_rank FROM customer_rankings WHERE phone = ?`, phone)
}

func (s *RankingStore) ExplorationRank(phone string) (int, error) {
	return s.intColumn(`SELECT exploration_rank FROM customer_rankings WHERE phone = ?`, phone)
}

func (s *RankingStore) FavoriteItemRank(phone, item string) (int, error) {
	return s.intColumn(`SELECT rank FROM item_rankings WHERE phone = ? AND item = ?`, phone, item)
}

func (s *RankingStore) Titles(phone string) (domain.Titles, error) {
	var t domain.Titles
	err := s.db.QueryRow(
		`SELECT top_user_count, total_cups_title, exploration_title FROM customer_rankings WHERE phone = ?`,
		phone,
	).Scan(&t.TopUserCount, &t.TotalCups, &t.Exploration)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Titles{}, nil
	}
	if err != nil {
		return t, err
	}

	rows, err := s.db.Query(`SELECT title, count FROM item_titles WHERE phone = ? ORDER BY position`, phone)
	if err != nil {
		return t, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.ItemTitle
		if err := rows.Scan(&it.Title, &it.Count); err != nil {
			return t, err
		}
		t.Items = append(t.Items, it)
	}
	return t, rows.Err()
}

func (s *RankingStore) intColumn(query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRow(query, args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
