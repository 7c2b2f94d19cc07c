package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryClassicCoffee Category = "classic_coffee"
	CategoryFlavorLatte   Category = "flavor_latte"
	CategoryFruitCoffee   Category = "fruit_coffee"
	CategoryCaffeineFree  Category = "caffeine_free"
	CategoryMilkTea       Category = "milk_tea"
	CategoryFruitTea      Category = "fruit_tea"
)

// Categories lists the six menu categories in display order.
var Categories = []Category{
	CategoryClassicCoffee,
	CategoryFlavorLatte,
	CategoryFruitCoffee,
	CategoryCaffeineFree,
	CategoryMilkTea,
	CategoryFruitTea,
}

// Menu labels used on receipts and in the shop's own exports.
var categoryLabels = map[Category]string{
	CategoryClassicCoffee: "经典咖啡",
	CategoryFlavorLatte:   "风味奶咖",
	CategoryFruitCoffee:   "元气果咖",
	CategoryCaffeineFree:  "无咖无茶特调",
	CategoryMilkTea:       "鲜萃奶茶",
	CategoryFruitTea:      "清爽果茶",
}

func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory accepts either a category code or its menu label.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if c := Category(strings.ToLower(s)); c.Valid() {
		return c, nil
	}
	for c, label := range categoryLabels {
		if label == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

type OrderItem struct {
	Name      string          `json:"name"`
	Category  Category        `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type Order struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	Items       []OrderItem     `json:"items"`
}

type Customer struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// CategoryCounts holds cups per menu category.
type CategoryCounts struct {
	ClassicCoffee int `json:"classicCoffee"`
	FlavorLatte   int `json:"flavorLatte"`
	FruitCoffee   int `json:"fruitCoffee"`
	CaffeineFree  int `json:"caffeineFree"`
	MilkTea       int `json:"milkTea"`
	FruitTea      int `json:"fruitTea"`
}

// Add increments the bucket for c. It reports false for an unknown category.
func (cc *CategoryCounts) Add(c Category, n int) bool {
	switch c {
	case CategoryClassicCoffee:
		cc.ClassicCoffee += n
	case CategoryFlavorLatte:
		cc.FlavorLatte += n
	case CategoryFruitCoffee:
		cc.FruitCoffee += n
	case CategoryCaffeineFree:
		cc.CaffeineFree += n
	case CategoryMilkTea:
		cc.MilkTea += n
	case CategoryFruitTea:
		cc.FruitTea += n
	default:
		return false
	}
	return true
}

func (cc CategoryCounts) Get(c Category) int {
	switch c {
	case CategoryClassicCoffee:
		return cc.ClassicCoffee
	case CategoryFlavorLatte:
		return cc.FlavorLatte
	case CategoryFruitCoffee:
		return cc.FruitCoffee
	case CategoryCaffeineFree:
		return cc.CaffeineFree
	case CategoryMilkTea:
		return cc.MilkTea
	case CategoryFruitTea:
		return cc.FruitTea
	}
	return 0
}

func (cc CategoryCounts) Sum() int {
	return cc.ClassicCoffee + cc.FlavorLatte + cc.FruitCoffee + cc.CaffeineFree + cc.MilkTea + cc.FruitTea
}

// MaskPhone hides the middle digits of a phone number for logs and staff channels.
func MaskPhone(phone string) string {
	r := []rune(phone)
	if len(r) < 7 {
		return phone
	}
	for i := 3; i < len(r)-4; i++ {
		r[i] = '*'
	}
	return string(r)
}
