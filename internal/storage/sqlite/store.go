package sqlite

import (
	"database/sql"
	"time"

	"cuprecap/internal/domain"
	"cuprecap/internal/redemption"
)

// OrderStore adapts the order tables to domain.OrderSource.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) GetCustomer(phone string) (domain.Customer, error) {
	return GetCustomer(s.db, phone)
}

func (s *OrderStore) OrdersByPhone(phone string) ([]domain.Order, error) {
	return OrdersByPhone(s.db, phone)
}

// KVStore is the device-local key/value area behind the redemption ledger.
type KVStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db, now: time.Now}
}

func (s *KVStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *KVStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC(),
	)
	return err
}

func (s *KVStore) SetIfAbsent(key, value string) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, value, s.now().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RedemptionsBetween lists redemptions recorded in this database in the
// half-open window (after, until].
func RedemptionsBetween(db *sql.DB, after, until time.Time) ([]domain.RedemptionStatus, error) {
	rows, err := db.Query(
		`SELECT key, value FROM kv
		 WHERE key LIKE 'redeemed\_%' ESCAPE '\' AND updated_at > ? AND updated_at <= ?
		 ORDER BY updated_at, key`,
		after.UTC(), until.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RedemptionStatus
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		phone, ok := redemption.PhoneFromKey(key)
		if !ok {
			continue
		}
		st := domain.RedemptionStatus{Phone: phone, State: domain.Redeemed}
		if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
			st.RedeemedAt = ts
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
