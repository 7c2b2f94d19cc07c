package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cuprecap/internal/domain"
	"cuprecap/internal/redemption"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cuprecap-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOrderIDsAreScopedPerCustomer(t *testing.T) {
	db := newTestDB(t)
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	orderFor := func(item string) []domain.Order {
		return []domain.Order{{
			ID: "1", Date: at, TotalAmount: decimal.RequireFromString("9.9"), Status: "completed",
			Items: []domain.OrderItem{
				{Name: item, Category: domain.CategoryClassicCoffee, UnitPrice: decimal.RequireFromString("9.9"), Quantity: 1},
			},
		}}
	}

	for _, c := range []struct {
		phone string
		item  string
	}{
		{"13800000001", "美式"},
		{"13800000002", "拿铁"},
	} {
		inserted, err := InsertOrders(db, c.phone, orderFor(c.item))
		if err != nil {
			t.Fatalf("InsertOrders(%s) failed: %v", c.phone, err)
		}
		if inserted != 1 {
			t.Fatalf("InsertOrders(%s) inserted=%d, want 1", c.phone, inserted)
		}
	}

	got, err := OrdersByPhone(db, "13800000002")
	if err != nil {
		t.Fatalf("OrdersByPhone failed: %v", err)
	}
	if len(got) != 1 || len(got[0].Items) != 1 || got[0].Items[0].Name != "拿铁" {
		t.Fatalf("second customer's order mixed up or lost: %+v", got)
	}
	got, _ = OrdersByPhone(db, "13800000001")
	if len(got) != 1 || len(got[0].Items) != 1 || got[0].Items[0].Name != "美式" {
		t.Fatalf("first customer's order changed: %+v", got)
	}
}

func TestCustomerNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetCustomer(db, "13800000000"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestOrdersRoundTrip(t *testing.T) {
	db := newTestDB(t)
	phone := "13800001234"
	if err := UpsertCustomer(db, domain.Customer{Phone: phone, Name: "Lin"}); err != nil {
		t.Fatalf("UpsertCustomer failed: %v", err)
	}
	if err := UpsertCustomer(db, domain.Customer{Phone: phone, Name: "Lin Y."}); err != nil {
		t.Fatalf("UpsertCustomer update failed: %v", err)
	}

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{
			ID: "B", Date: base.Add(48 * time.Hour), TotalAmount: decimal.RequireFromString("19.9"), Status: "completed",
			Items: []domain.OrderItem{
				{Name: "生椰拿铁", Category: domain.CategoryFlavorLatte, UnitPrice: decimal.RequireFromString("9.9"), Quantity: 1},
				{Name: "美式", Category: domain.CategoryClassicCoffee, UnitPrice: decimal.RequireFromString("10"), Quantity: 1},
			},
		},
		{
			ID: "A", Date: base, TotalAmount: decimal.RequireFromString("12"), Status: "completed",
			Items: []domain.OrderItem{
				{Name: "鲜萃奶茶", Category: domain.CategoryMilkTea, UnitPrice: decimal.RequireFromString("12"), Quantity: 1},
			},
		},
		{ID: "C", Date: base.Add(72 * time.Hour), TotalAmount: decimal.Zero, Status: "cancelled"},
	}
	inserted, err := InsertOrders(db, phone, orders)
	if err != nil {
		t.Fatalf("InsertOrders failed: %v", err)
	}
	if inserted != 3 {
		t.Fatalf("expected inserted=3, got %d", inserted)
	}

	// Re-import is a no-op.
	inserted, err = InsertOrders(db, phone, orders)
	if err != nil {
		t.Fatalf("InsertOrders re-import failed: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected re-import to insert 0, got %d", inserted)
	}

	c, err := GetCustomer(db, phone)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if c.Name != "Lin Y." {
		t.Fatalf("unexpected customer name %q", c.Name)
	}

	got, err := OrdersByPhone(db, phone)
	if err != nil {
		t.Fatalf("OrdersByPhone failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(got))
	}
	if got[0].ID != "A" || got[1].ID != "B" || got[2].ID != "C" {
		t.Fatalf("orders not chronological: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if len(got[1].Items) != 2 || got[1].Items[0].Name != "生椰拿铁" {
		t.Fatalf("unexpected items for B: %+v", got[1].Items)
	}
	if !got[1].Items[0].UnitPrice.Equal(decimal.RequireFromString("9.9")) {
		t.Fatalf("unit price = %s, want 9.9", got[1].Items[0].UnitPrice)
	}
	if !got[1].TotalAmount.Equal(decimal.RequireFromString("19.9")) {
		t.Fatalf("total = %s, want 19.9", got[1].TotalAmount)
	}
	if len(got[2].Items) != 0 {
		t.Fatalf("order C should have no items, got %d", len(got[2].Items))
	}
	if !got[0].Date.Equal(base) {
		t.Fatalf("date round trip: got %v want %v", got[0].Date, base)
	}

	n, err := CountOrders(db, phone)
	if err != nil || n != 3 {
		t.Fatalf("CountOrders = %d, %v", n, err)
	}
}

func TestRankingStore(t *testing.T) {
	db := newTestDB(t)
	store := NewRankingStore(db)

	rank, err := store.TotalCupsRank("missing")
	if err != nil || rank != 0 {
		t.Fatalf("missing phone: rank=%d err=%v", rank, err)
	}
	titles, err := store.Titles("missing")
	if err != nil || titles.TopUserCount != 0 || len(titles.Items) != 0 {
		t.Fatalf("missing phone titles: %+v err=%v", titles, err)
	}

	entry := RankingEntry{
		Phone:           "13800001234",
		TotalCupsRank:   4,
		ExplorationRank: 12,
		ItemRanks:       map[string]int{"美式": 2},
		Titles: domain.Titles{
			TopUserCount: 180,
			TotalCups:    "年度冠军·牛饮至尊",
			Exploration:  "风味探索达人",
			Items:        []domain.ItemTitle{{Title: "美式守护者", Count: 40}, {Title: "果咖先锋", Count: 12}},
		},
	}
	if err := UpsertRanking(db, entry); err != nil {
		t.Fatalf("UpsertRanking failed: %v", err)
	}
	entry.TotalCupsRank = 3
	entry.Titles.Items = entry.Titles.Items[:1]
	if err := UpsertRanking(db, entry); err != nil {
		t.Fatalf("UpsertRanking update failed: %v", err)
	}

	if rank, _ := store.TotalCupsRank(entry.Phone); rank != 3 {
		t.Fatalf("TotalCupsRank = %d, want 3", rank)
	}
	if rank, _ := store.ExplorationRank(entry.Phone); rank != 12 {
		t.Fatalf("ExplorationRank = %d, want 12", rank)
	}
	if rank, _ := store.FavoriteItemRank(entry.Phone, "美式"); rank != 2 {
		t.Fatalf("FavoriteItemRank = %d, want 2", rank)
	}
	if rank, _ := store.FavoriteItemRank(entry.Phone, "拿铁"); rank != 0 {
		t.Fatalf("FavoriteItemRank for unranked item = %d, want 0", rank)
	}
	titles, err = store.Titles(entry.Phone)
	if err != nil {
		t.Fatalf("Titles failed: %v", err)
	}
	if titles.TopUserCount != 180 || titles.TotalCups != "年度冠军·牛饮至尊" || len(titles.Items) != 1 {
		t.Fatalf("unexpected titles: %+v", titles)
	}
}

func TestKVStoreBacksLedger(t *testing.T) {
	db := newTestDB(t)
	kv := NewKVStore(db)
	ledger := redemption.NewLedger(kv)

	before := time.Now().Add(-time.Minute)
	status, err := ledger.Redeem("13800001234", redemption.ConfirmFunc(func(string) (bool, error) { return true, nil }))
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	again, err := redemption.NewLedger(NewKVStore(db)).Status("13800001234")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !again.IsRedeemed() || !again.RedeemedAt.Equal(status.RedeemedAt) {
		t.Fatalf("redemption not persisted: %+v vs %+v", again, status)
	}

	list, err := RedemptionsBetween(db, before, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("RedemptionsBetween failed: %v", err)
	}
	if len(list) != 1 || list[0].Phone != "13800001234" {
		t.Fatalf("unexpected redemptions: %+v", list)
	}

	list, err = RedemptionsBetween(db, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("RedemptionsBetween failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no redemptions in the future, got %d", len(list))
	}

	list, err = RedemptionsBetween(db, time.Time{}, before)
	if err != nil {
		t.Fatalf("RedemptionsBetween failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no redemptions before %v, got %d", before, len(list))
	}
}

func TestKVStoreRedeemDuringConfirmation(t *testing.T) {
	db := newTestDB(t)
	fast := redemption.NewLedger(NewKVStore(db))
	slow := redemption.NewLedger(NewKVStore(db))

	var first domain.RedemptionStatus
	_, err := slow.Redeem("13800001234", redemption.ConfirmFunc(func(string) (bool, error) {
		var err error
		first, err = fast.Redeem("13800001234", redemption.ConfirmFunc(func(string) (bool, error) { return true, nil }))
		if err != nil {
			t.Fatalf("inner redeem: %v", err)
		}
		return true, nil
	}))
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}

	got, err := fast.Status("13800001234")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !got.RedeemedAt.Equal(first.RedeemedAt) {
		t.Fatalf("stored timestamp %v overwrote %v", got.RedeemedAt, first.RedeemedAt)
	}
}

func TestKVStoreMissingKey(t *testing.T) {
	kv := NewKVStore(newTestDB(t))
	if _, ok, err := kv.Get("nothing"); ok || err != nil {
		t.Fatalf("Get(missing) ok=%v err=%v", ok, err)
	}
}
