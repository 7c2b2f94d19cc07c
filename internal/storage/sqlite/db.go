package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		phone      TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		phone        TEXT NOT NULL,
		id           TEXT NOT NULL,
		ordered_at   DATETIME NOT NULL,
		total_amount TEXT NOT NULL DEFAULT '0',
		status       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (phone, id)
	);
	CREATE INDEX IF NOT EXISTS idx_orders_phone ON orders(phone, ordered_at);

	CREATE TABLE IF NOT EXISTS order_items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		phone      TEXT NOT NULL,
		order_id   TEXT NOT NULL,
		line_no    INTEGER NOT NULL,
		name       TEXT NOT NULL,
		category   TEXT NOT NULL,
		unit_price TEXT NOT NULL DEFAULT '0',
		quantity   INTEGER NOT NULL DEFAULT 0,
		UNIQUE(phone, order_id, line_no)
	);

	CREATE TABLE IF NOT EXISTS customer_rankings (
		phone             TEXT PRIMARY KEY,
		total_cups_rank   INTEGER NOT NULL DEFAULT 0,
		exploration_rank  INTEGER NOT NULL DEFAULT 0,
		top_user_count    INTEGER NOT NULL DEFAULT 0,
		total_cups_title  TEXT NOT NULL DEFAULT '',
		exploration_title TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS item_rankings (
		phone TEXT NOT NULL,
		item  TEXT NOT NULL,
		rank  INTEGER NOT NULL,
		PRIMARY KEY (phone, item)
	);

	CREATE TABLE IF NOT EXISTS item_titles (
		phone    TEXT NOT NULL,
		position INTEGER NOT NULL,
		title    TEXT NOT NULL,
		count    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (phone, position)
	);

	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_kv_updated ON kv(updated_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}
