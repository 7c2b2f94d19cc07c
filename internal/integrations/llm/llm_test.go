package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cuprecap/internal/config"
	"cuprecap/internal/domain"

	"github.com/shopspring/decimal"
)

func sampleHistory() (domain.Customer, []domain.Order) {
	c := domain.Customer{Phone: "13800001234", Name: "Lin"}
	orders := []domain.Order{
		{
			ID:          "A1",
			Date:        time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
			TotalAmount: decimal.RequireFromString("25.50"),
			Items: []domain.OrderItem{
				{Name: "美式", Category: domain.CategoryClassicCoffee, Quantity: 1},
				{Name: "生椰拿铁", Category: domain.CategoryFlavorLatte, Quantity: 1},
			},
		},
		{
			ID:          "A2",
			Date:        time.Date(2025, 2, 5, 9, 0, 0, 0, time.UTC),
			TotalAmount: decimal.RequireFromString("12"),
			Items:       []domain.OrderItem{{Name: "美式", Category: domain.CategoryClassicCoffee, Quantity: 2}},
		},
	}
	return c, orders
}

func TestSummarize(t *testing.T) {
	c, orders := sampleHistory()
	sd := Summarize(c, orders)
	if sd.User != "Lin" || sd.TotalOrders != 2 {
		t.Fatalf("unexpected summary: %+v", sd)
	}
	if sd.TotalSpent != "37.50" {
		t.Fatalf("total spent = %q, want 37.50", sd.TotalSpent)
	}
	if len(sd.Items) != 3 || sd.Items[0] != "美式 (经典咖啡)" {
		t.Fatalf("unexpected items: %v", sd.Items)
	}
}

func TestSummarizeLimitsItems(t *testing.T) {
	var items []domain.OrderItem
	for i := 0; i < 50; i++ {
		items = append(items, domain.OrderItem{Name: "美式", Category: domain.CategoryClassicCoffee, Quantity: 1})
	}
	sd := Summarize(domain.Customer{}, []domain.Order{{Items: items}})
	if len(sd.Items) != maxSummaryItems {
		t.Fatalf("expected %d items, got %d", maxSummaryItems, len(sd.Items))
	}
}

func TestBuildInsightPrompt(t *testing.T) {
	c, orders := sampleHistory()
	prompt, err := BuildInsightPrompt(Summarize(c, orders))
	if err != nil {
		t.Fatalf("BuildInsightPrompt error: %v", err)
	}
	for _, want := range []string{`"user":"Lin"`, `"totalSpent":"37.50"`, "Coffee Personality", "humorous"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestAnalyzeFallbacks(t *testing.T) {
	c, orders := sampleHistory()
	ctx := context.Background()

	if got := New(config.Config{LLMProvider: "anthropic"}).Analyze(ctx, c, orders); got.Text != MissingKeyMessage || got.Source != "fallback" {
		t.Fatalf("missing key: got %+v", got)
	}

	failing := &Insighter{provider: "anthropic", call: func(context.Context, string, string) (string, LLMUsage, error) {
		return "", LLMUsage{}, errors.New("boom")
	}}
	if got := failing.Analyze(ctx, c, orders); got.Text != UnavailableMessage {
		t.Fatalf("provider error: got %+v", got)
	}

	blank := &Insighter{provider: "anthropic", call: func(context.Context, string, string) (string, LLMUsage, error) {
		return "  ", LLMUsage{}, nil
	}}
	if got := blank.Analyze(ctx, c, orders); got.Text != EmptyMessage {
		t.Fatalf("blank response: got %+v", got)
	}

	ok := &Insighter{provider: "anthropic", call: func(_ context.Context, system, user string) (string, LLMUsage, error) {
		if !strings.Contains(user, "Lin") || system == "" {
			t.Fatalf("unexpected prompts: %q / %q", system, user)
		}
		return " A bold americano loyalist. \n", LLMUsage{InputTokens: 10, OutputTokens: 5}, nil
	}}
	if got := ok.Analyze(ctx, c, orders); got.Text != "A bold americano loyalist." || got.Source != "anthropic" {
		t.Fatalf("success: got %+v", got)
	}
}

func TestCallOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		var req openAIRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Latte artist."}}],"usage":{"prompt_tokens":7,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	original := openAIURL
	openAIURL = srv.URL
	t.Cleanup(func() { openAIURL = original })

	text, usage, err := callOpenAI(context.Background(), "sk-test", "gpt-4o-mini", "sys", "user")
	if err != nil {
		t.Fatalf("callOpenAI error: %v", err)
	}
	if text != "Latte artist." || usage.InputTokens != 7 || usage.OutputTokens != 3 {
		t.Fatalf("unexpected result: %q %+v", text, usage)
	}
}

func TestCallOpenAIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	original := openAIURL
	openAIURL = srv.URL
	t.Cleanup(func() { openAIURL = original })

	if _, _, err := callOpenAI(context.Background(), "bad", "m", "s", "u"); err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expected API error, got %v", err)
	}
}
