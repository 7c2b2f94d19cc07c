// Package importer loads customer order exports and ranking feeds into SQLite.
// Files are YAML; JSON exports load through the same decoder.
package importer

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"cuprecap/internal/domain"
	"cuprecap/internal/storage/sqlite"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// orderNamespace seeds deterministic IDs for exported orders that carry none.
var orderNamespace = uuid.MustParse("6f1d4c2e-8b7a-4e55-9c3d-2a1f0b9e7d64")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalYAML(n *yaml.Node) error {
	v := strings.TrimSpace(n.Value)
	if v == "" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", n.Line, n.Value)
	}
	a.Decimal = d
	return nil
}

type historyFile struct {
	Customers []customerEntry `yaml:"customers"`
}

type customerEntry struct {
	Phone  string       `yaml:"phone"`
	Name   string       `yaml:"name"`
	Orders []orderEntry `yaml:"orders"`
}

type orderEntry struct {
	ID          string      `yaml:"id"`
	Date        string      `yaml:"date"`
	TotalAmount amount      `yaml:"total_amount"`
	Status      string      `yaml:"status"`
	Items       []itemEntry `yaml:"items"`
}

type itemEntry struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Price    amount `yaml:"price"`
	Quantity int    `yaml:"quantity"`
}

// CustomerHistory is one customer and their parsed orders.
type CustomerHistory struct {
	Customer domain.Customer
	Orders   []domain.Order
}

// LoadHistory parses an order export. Dates without a zone are read in loc.
func LoadHistory(path string, loc *time.Location) ([]CustomerHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read order export: %w", err)
	}
	return ParseHistory(data, loc)
}

func ParseHistory(data []byte, loc *time.Location) ([]CustomerHistory, error) {
	if loc == nil {
		loc = time.UTC
	}
	var f historyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse order export: %w", err)
	}

	out := make([]CustomerHistory, 0, len(f.Customers))
	for ci, c := range f.Customers {
		phone := strings.TrimSpace(c.Phone)
		if phone == "" {
			return nil, fmt.Errorf("customer #%d: phone is required", ci+1)
		}
		h := CustomerHistory{Customer: domain.Customer{Phone: phone, Name: strings.TrimSpace(c.Name)}}
		for oi, o := range c.Orders {
			order, err := toOrder(phone, oi, o, loc)
			if err != nil {
				return nil, fmt.Errorf("customer %s: %w", domain.MaskPhone(phone), err)
			}
			h.Orders = append(h.Orders, order)
		}
		out = append(out, h)
	}
	return out, nil
}

func toOrder(phone string, idx int, o orderEntry, loc *time.Location) (domain.Order, error) {
	date, err := parseDate(o.Date, loc)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order #%d: %w", idx+1, err)
	}
	id := strings.TrimSpace(o.ID)
	if id == "" {
		id = uuid.NewSHA1(orderNamespace, []byte(fmt.Sprintf("%s|%s|%d", phone, date.UTC().Format(time.RFC3339), idx))).String()
	}
	order := domain.Order{
		ID:          id,
		Date:        date,
		TotalAmount: o.TotalAmount.Decimal,
		Status:      strings.TrimSpace(o.Status),
	}
	for li, it := range o.Items {
		cat, err := domain.ParseCategory(it.Category)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %s line %d: %w", id, li+1, err)
		}
		order.Items = append(order.Items, domain.OrderItem{
			Name:      strings.TrimSpace(it.Name),
			Category:  cat,
			UnitPrice: it.Price.Decimal,
			Quantity:  it.Quantity,
		})
	}
	return order, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ImportResult tracks what an import did.
type ImportResult struct {
	Customers      int
	OrdersInserted int
	AlreadyStored  int
}

func ImportHistory(db *sql.DB, histories []CustomerHistory) (ImportResult, error) {
	var result ImportResult
	for _, h := range histories {
		if err := sqlite.UpsertCustomer(db, h.Customer); err != nil {
			return result, fmt.Errorf("store customer %s: %w", domain.MaskPhone(h.Customer.Phone), err)
		}
		result.Customers++
		inserted, err := sqlite.InsertOrders(db, h.Customer.Phone, h.Orders)
		result.OrdersInserted += inserted
		if err != nil {
			return result, fmt.Errorf("store orders for %s: %w", domain.MaskPhone(h.Customer.Phone), err)
		}
		result.AlreadyStored += len(h.Orders) - inserted
		log.Printf("import customer=%s orders=%d inserted=%d", domain.MaskPhone(h.Customer.Phone), len(h.Orders), inserted)
	}
	return result, nil
}

// FormatImportSummary returns a human-readable summary of an ImportResult.
func FormatImportSummary(r ImportResult) string {
	msg := fmt.Sprintf("Imported %d customers, %d new orders", r.Customers, r.OrdersInserted)
	if r.AlreadyStored > 0 {
		msg += fmt.Sprintf(" (%d already stored)", r.AlreadyStored)
	}
	return msg + "."
}
