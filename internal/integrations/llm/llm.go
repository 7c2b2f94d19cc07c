// Package llm writes the lighthearted "coffee personality" blurb shown next to
// a customer's annual report.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"cuprecap/internal/config"
	"cuprecap/internal/domain"
	"cuprecap/internal/httpx"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopspring/decimal"
)

const (
	MissingKeyMessage  = "AI API key is missing. Please configure it to see AI insights."
	UnavailableMessage = "AI analysis is currently unavailable. Please try again later."
	EmptyMessage       = "Could not generate insights at this time."

	maxSummaryItems = 30
	maxTokens       = 512
)

const systemPrompt = `You are a fun, witty personal finance assistant for a coffee shop loyalist.
Keep the tone lighthearted and encouraging.`

var openAIURL = "https://api.openai.com/v1/chat/completions"

// Insight is the text shown to the customer. Source is the provider that
// produced it, or "fallback".
type Insight struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type SummaryData struct {
	User        string   `json:"user"`
	TotalOrders int      `json:"totalOrders"`
	TotalSpent  string   `json:"totalSpent"`
	Items       []string `json:"items"`
}

type callFunc func(ctx context.Context, system, user string) (string, LLMUsage, error)

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

type Insighter struct {
	provider string
	call     callFunc
}

// New returns an Insighter for the configured provider. Without an API key
// every request answers with MissingKeyMessage.
func New(cfg config.Config) *Insighter {
	in := &Insighter{provider: cfg.LLMProvider}
	if !cfg.LLMConfigured() {
		return in
	}
	apiKey, model := cfg.LLMAPIKey(), cfg.LLMModel
	switch cfg.LLMProvider {
	case "openai":
		in.call = func(ctx context.Context, system, user string) (string, LLMUsage, error) {
			return callOpenAI(ctx, apiKey, model, system, user)
		}
	default:
		in.call = func(ctx context.Context, system, user string) (string, LLMUsage, error) {
			return callAnthropic(ctx, apiKey, model, system, user)
		}
	}
	return in
}

func (in *Insighter) Enabled() bool {
	return in != nil && in.call != nil
}

// Analyze never fails: provider errors are logged and replaced by a fallback text.
func (in *Insighter) Analyze(ctx context.Context, customer domain.Customer, orders []domain.Order) Insight {
	if !in.Enabled() {
		return Insight{Text: MissingKeyMessage, Source: "fallback"}
	}
	user, err := BuildInsightPrompt(Summarize(customer, orders))
	if err != nil {
		log.Printf("llm insight prompt error: %v", err)
		return Insight{Text: UnavailableMessage, Source: "fallback"}
	}
	text, usage, err := in.call(ctx, systemPrompt, user)
	if err != nil {
		log.Printf("llm insight error provider=%s customer=%s: %v", in.provider, domain.MaskPhone(customer.Phone), err)
		return Insight{Text: UnavailableMessage, Source: "fallback"}
	}
	log.Printf("llm insight provider=%s customer=%s tokens_in=%d tokens_out=%d", in.provider, domain.MaskPhone(customer.Phone), usage.InputTokens, usage.OutputTokens)
	text = strings.TrimSpace(text)
	if text == "" {
		return Insight{Text: EmptyMessage, Source: "fallback"}
	}
	return Insight{Text: text, Source: in.provider}
}

// Summarize trims a history down to what the prompt needs.
func Summarize(customer domain.Customer, orders []domain.Order) SummaryData {
	sd := SummaryData{User: customer.Name, TotalOrders: len(orders), Items: []string{}}
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
		for _, it := range o.Items {
			if len(sd.Items) < maxSummaryItems {
				sd.Items = append(sd.Items, fmt.Sprintf("%s (%s)", it.Name, it.Category.Label()))
			}
		}
	}
	sd.TotalSpent = total.StringFixed(2)
	return sd
}

func BuildInsightPrompt(sd SummaryData) (string, error) {
	data, err := json.Marshal(sd)
	if err != nil {
		return "", fmt.Errorf("marshaling summary: %w", err)
	}
	var b strings.Builder
	b.WriteString("Analyze the following annual coffee consumption data JSON:\n")
	b.Write(data)
	b.WriteString("\n\nTask:\n")
	b.WriteString("1. Give a 2-sentence summary of their \"Coffee Personality\".\n")
	b.WriteString("2. Provide one humorous or useful tip based on what they buy most.\n")
	return b.String(), nil
}

// --- Anthropic ---

func callAnthropic(ctx context.Context, apiKey, model, system, user string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey), option.WithHTTPClient(httpx.ExternalHTTPClient()))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(ctx context.Context, apiKey, model, system, user string) (string, LLMUsage, error) {
	bodyBytes, err := json.Marshal(openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpx.ExternalHTTPClient().Do(req)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", LLMUsage{}, fmt.Errorf("parsing OpenAI response (status %d): %w", resp.StatusCode, err)
	}
	if openAIResp.Error != nil {
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", LLMUsage{}, fmt.Errorf("no choices in OpenAI response")
	}
	usage := LLMUsage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}
	return openAIResp.Choices[0].Message.Content, usage, nil
}
