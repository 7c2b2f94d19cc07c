package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"cuprecap/internal/domain"
)

func UpsertCustomer(db *sql.DB, c domain.Customer) error {
	_, err := db.Exec(
		`INSERT INTO customers (phone, name) VALUES (?, ?)
		 ON CONFLICT(phone) DO UPDATE SET name = excluded.name`,
		c.Phone, c.Name,
	)
	return err
}

func GetCustomer(db *sql.DB, phone string) (domain.Customer, error) {
	var c domain.Customer
	err := db.QueryRow(`SELECT phone, name FROM customers WHERE phone = ?`, phone).Scan(&c.Phone, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return c, domain.ErrCustomerNotFound
	}
	return c, err
}

// InsertOrders stores orders for phone. Order IDs are scoped to the customer;
// an ID phone already has is skipped so re-importing the same export is harmless.
func InsertOrders(db *sql.DB, phone string, orders []domain.Order) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	orderStmt, err := tx.Prepare(
		`INSERT INTO orders (phone, id, ordered_at, total_amount, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(phone, id) DO NOTHING`,
	)
	if err != nil {
		return 0, err
	}
	defer orderStmt.Close()

	itemStmt, err := tx.Prepare(
		`INSERT INTO order_items (phone, order_id, line_no, name, category, unit_price, quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer itemStmt.Close()

	inserted := 0
	for _, o := range orders {
		res, err := orderStmt.Exec(phone, o.ID, o.Date.UTC(), o.TotalAmount.String(), o.Status)
		if err != nil {
			return inserted, fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		for i, it := range o.Items {
			_, err := itemStmt.Exec(phone, o.ID, i, it.Name, string(it.Category), it.UnitPrice.String(), it.Quantity)
			if err != nil {
				return inserted, fmt.Errorf("insert order %s line %d: %w", o.ID, i, err)
			}
		}
		inserted++
	}

	return inserted, tx.Commit()
}

// OrdersByPhone returns the full order history for phone, oldest first.
func OrdersByPhone(db *sql.DB, phone string) ([]domain.Order, error) {
	rows, err := db.Query(
		`SELECT o.id, o.ordered_at, o.total_amount, o.status,
		        i.name, i.category, i.unit_price, i.quantity
		 FROM orders o
		 LEFT JOIN order_items i ON i.phone = o.phone AND i.order_id = o.id
		 WHERE o.phone = ?
		 ORDER BY o.ordered_at, o.id, i.line_no`,
		phone,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	index := make(map[string]int)
	for rows.Next() {
		var o domain.Order
		var name, category sql.NullString
		var price sql.NullString
		var qty sql.NullInt64
		if err := rows.Scan(&o.ID, &o.Date, &o.TotalAmount, &o.Status, &name, &category, &price, &qty); err != nil {
			return nil, err
		}
		pos, seen := index[o.ID]
		if !seen {
			pos = len(orders)
			index[o.ID] = pos
			orders = append(orders, o)
		}
		if !name.Valid {
			continue
		}
		it := domain.OrderItem{Name: name.String, Category: domain.Category(category.String), Quantity: int(qty.Int64)}
		if err := it.UnitPrice.Scan(price.String); err != nil {
			return nil, fmt.Errorf("order %s item %q price: %w", o.ID, name.String, err)
		}
		orders[pos].Items = append(orders[pos].Items, it)
	}
	return orders, rows.Err()
}

func CountOrders(db *sql.DB, phone string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM orders WHERE phone = ?`, phone).Scan(&n)
	return n, err
}
