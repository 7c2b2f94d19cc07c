package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuprecap/internal/domain"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"
	"cuprecap/internal/report"
	"cuprecap/internal/storage/sqlite"

	"github.com/shopspring/decimal"
)

const (
	testPhone    = "13800001234"
	noOrderPhone = "13900000000"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := sqlite.UpsertCustomer(db, domain.Customer{Phone: testPhone, Name: "Lin"}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := sqlite.UpsertCustomer(db, domain.Customer{Phone: noOrderPhone}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	orders := []domain.Order{{
		ID:          "A1",
		Date:        time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC),
		TotalAmount: decimal.RequireFromString("30"),
		Status:      "completed",
		Items: []domain.OrderItem{
			{Name: "美式", Category: domain.CategoryClassicCoffee, UnitPrice: decimal.RequireFromString("10"), Quantity: 3},
		},
	}}
	if _, err := sqlite.InsertOrders(db, testPhone, orders); err != nil {
		t.Fatalf("seed orders: %v", err)
	}
	if err := sqlite.UpsertRanking(db, sqlite.RankingEntry{Phone: testPhone, TotalCupsRank: 5}); err != nil {
		t.Fatalf("seed ranking: %v", err)
	}

	svc := recap.NewService(
		sqlite.NewOrderStore(db),
		report.NewBuilder(sqlite.NewRankingStore(db), report.DefaultOptions()),
		redemption.NewLedger(sqlite.NewKVStore(db)),
		nil,
	)
	s := NewServer(svc, "https://cups.example.com/recap")
	s.EnableMetrics()
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (body=%s)", err, w.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	h := setupServer(t)
	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReport(t *testing.T) {
	h := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/report/"+testPhone, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["totalCups"] != float64(3) || resp["favoriteItem"] != "美式" {
		t.Errorf("unexpected report: %v", resp)
	}
	if resp["preferenceDepth"] != "100.00%" {
		t.Errorf("unexpected preference depth: %v", resp["preferenceDepth"])
	}
	if resp["redeemUrl"] != "https://cups.example.com/recap?redeem=13800001234&rank=5" {
		t.Errorf("unexpected redeem url: %v", resp["redeemUrl"])
	}
	labels, _ := resp["monthLabels"].([]interface{})
	monthly, _ := resp["monthlyCounts"].([]interface{})
	if len(labels) != 13 || len(monthly) != 13 || monthly[3] != float64(3) {
		t.Errorf("unexpected monthly data: labels=%v counts=%v", labels, monthly)
	}
}

func TestReportNotFound(t *testing.T) {
	h := setupServer(t)
	w := do(t, h, http.MethodGet, "/api/report/10000000000", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := decode(t, w)
	if _, ok := resp["totalCups"]; ok {
		t.Fatal("not-found response must not carry report data")
	}
	errBody, _ := resp["error"].(map[string]interface{})
	if errBody["message"] != recap.NotFoundMessage {
		t.Fatalf("unexpected message: %v", errBody["message"])
	}
}

func TestOrders(t *testing.T) {
	h := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/report/"+testPhone+"/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	orders, _ := resp["orders"].([]interface{})
	if resp["total"] != float64(1) || len(orders) != 1 {
		t.Fatalf("unexpected orders response: %v", resp)
	}
	first, _ := orders[0].(map[string]interface{})
	if first["id"] != "A1" || first["firstItem"] != "美式" || first["amount"] != "30" || first["status"] != "completed" {
		t.Errorf("unexpected order line: %v", first)
	}
	if _, ok := resp["message"]; ok {
		t.Errorf("non-empty history should not carry a message: %v", resp)
	}

	w = do(t, h, http.MethodGet, "/api/report/"+noOrderPhone+"/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = decode(t, w)
	if resp["total"] != float64(0) || resp["message"] != recap.NoOrdersMessage {
		t.Errorf("unexpected empty response: %v", resp)
	}
	if orders, ok := resp["orders"].([]interface{}); !ok || len(orders) != 0 {
		t.Errorf("empty history should be an empty list: %v", resp["orders"])
	}

	if w := do(t, h, http.MethodGet, "/api/report/10000000000/orders", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInsightFallback(t *testing.T) {
	h := setupServer(t)
	w := do(t, h, http.MethodGet, "/api/report/"+testPhone+"/insight", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp["source"] != "fallback" {
		t.Fatalf("expected fallback insight, got %v", resp)
	}
}

func TestTier(t *testing.T) {
	h := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/tier/11", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp["id"] != float64(3) {
		t.Fatalf("rank 11 should map to tier 3, got %v", resp)
	}

	for _, bad := range []string{"0", "-1", "abc", "3x"} {
		if w := do(t, h, http.MethodGet, "/api/tier/"+bad, ""); w.Code != http.StatusBadRequest {
			t.Errorf("rank %q: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestRedeemViewFallsBackToEntry(t *testing.T) {
	h := setupServer(t)
	for _, path := range []string{"/api/redeem", "/api/redeem?redeem=" + testPhone, "/api/redeem?redeem=" + testPhone + "&rank=abc"} {
		w := do(t, h, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if resp := decode(t, w); resp["mode"] != "entry" {
			t.Fatalf("%s: expected entry mode, got %v", path, resp)
		}
	}
	if w := do(t, h, http.MethodGet, "/api/redeem?redeem="+testPhone+"&rank=0", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("rank 0: expected 400, got %d", w.Code)
	}
}

func TestRedeemFlow(t *testing.T) {
	h := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/redeem?redeem="+testPhone+"&rank=5", "")
	resp := decode(t, w)
	if resp["mode"] != "redeem" || resp["confirmPrompt"] != redemption.ConfirmPrompt {
		t.Fatalf("unexpected view: %v", resp)
	}
	tierBody, _ := resp["tier"].(map[string]interface{})
	if tierBody["id"] != float64(2) {
		t.Fatalf("rank 5 should map to tier 2, got %v", tierBody)
	}

	w = do(t, h, http.MethodPost, "/api/redeem", `{"phone":"`+testPhone+`","rank":5,"confirm":false}`)
	if w.Code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed: expected 428, got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/redeem", `{"phone":"`+testPhone+`","rank":5,"confirm":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	status, _ := decode(t, w)["status"].(map[string]interface{})
	if status["state"] != "redeemed" || status["redeemedAt"] == nil {
		t.Fatalf("unexpected status: %v", status)
	}

	w = do(t, h, http.MethodPost, "/api/redeem", `{"phone":"`+testPhone+`","rank":5,"confirm":true}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", w.Code)
	}
	dup, _ := decode(t, w)["status"].(map[string]interface{})
	if dup["redeemedAt"] != status["redeemedAt"] {
		t.Fatalf("duplicate must report the original timestamp: %v vs %v", dup["redeemedAt"], status["redeemedAt"])
	}

	w = do(t, h, http.MethodGet, "/api/redeem?redeem="+testPhone+"&rank=5", "")
	if resp := decode(t, w); resp["confirmPrompt"] != nil {
		t.Fatalf("redeemed view must not prompt again: %v", resp)
	}
}

func TestRedeemBadRequests(t *testing.T) {
	h := setupServer(t)
	bodies := []string{
		`not json`,
		`{"rank":5,"confirm":true}`,
		`{"phone":"1","rank":0,"confirm":1}`,
		`{"phone":"1","rank":-2,"confirm":true}`,
	}
	for _, body := range bodies {
		if w := do(t, h, http.MethodPost, "/api/redeem", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupServer(t)
	do(t, h, http.MethodGet, "/api/report/"+testPhone, "")
	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cuprecap_report_requests_total") {
		t.Fatal("metrics output missing report counter")
	}
}
