package recap

import (
	"fmt"
	"sort"
	"time"

	"cuprecap/internal/domain"

	"github.com/shopspring/decimal"
)

// NoOrdersMessage is shown in place of an empty order history.
const NoOrdersMessage = "No orders found for this period."

// OrderLine is one row of a customer's order history.
type OrderLine struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	FirstItem string          `json:"firstItem"`
	MoreItems int             `json:"moreItems"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

// Items renders the first item name plus a count of the rest.
func (l OrderLine) Items() string {
	name := l.FirstItem
	if name == "" {
		name = "-"
	}
	if l.MoreItems > 0 {
		return fmt.Sprintf("%s +%d more items", name, l.MoreItems)
	}
	return name
}

func summarizeOrder(o domain.Order, loc *time.Location) OrderLine {
	line := OrderLine{
		ID:     o.ID,
		Date:   o.Date.In(loc),
		Amount: o.TotalAmount,
		Status: o.Status,
	}
	if len(o.Items) > 0 {
		line.FirstItem = o.Items[0].Name
		line.MoreItems = len(o.Items) - 1
	}
	return line
}

// Orders lists phone's order history newest first, with dates in the report
// location. A known customer without orders gets an empty, non-nil slice.
func (s *Service) Orders(phone string) ([]OrderLine, error) {
	_, orders, err := s.History(phone)
	if err != nil {
		return nil, err
	}
	loc := s.ReportOptions().Location
	if loc == nil {
		loc = time.UTC
	}
	lines := make([]OrderLine, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, summarizeOrder(o, loc))
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Date.After(lines[j].Date)
	})
	return lines, nil
}
