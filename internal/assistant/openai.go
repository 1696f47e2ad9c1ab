package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const systemPrompt = `You classify questions about a personal expense ledger.
Reply with a single JSON object: {"intent": string, "month": string|null, "category": string|null, "amount": number|null}.
intent is one of: total_for_month, highest_this_month, list_by_category, set_budget, unknown.
month is "YYYY-MM" when the question names a month, otherwise null.
category is the expense category for list_by_category, otherwise null.
amount is the budget amount for set_budget, otherwise null.`

type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// OpenAIClassifier asks a chat model to classify queries. Answers are cached per
// normalised query; any API or decoding failure falls back to the rules classifier.
type OpenAIClassifier struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	fallback Classifier
	cache    *cache.LRUCache[Classification]
}

func NewOpenAIClassifier(cfg OpenAIConfig, fallback Classifier) *OpenAIClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if fallback == nil {
		fallback = NewRulesClassifier()
	}
	return &OpenAIClassifier{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		timeout:  timeout,
		fallback: fallback,
		cache:    cache.NewLRUCache[Classification](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Cache exposes the answer cache so callers can register it for cleanup.
func (c *OpenAIClassifier) Cache() cache.Cleaner { return c.cache }

func (c *OpenAIClassifier) Classify(ctx context.Context, query string) (Classification, error) {
	key := normalize(query)
	if hit, ok := c.cache.Get(key); ok {
		return hit, nil
	}

	result, err := c.ask(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "LLM classification failed, using keyword rules",
			log.FieldComponent, log.ComponentAssistant,
			log.FieldOperation, log.OpClassify,
			log.FieldError, err)
		return c.fallback.Classify(ctx, query)
	}

	c.cache.Set(key, result)
	return result, nil
}

func (c *OpenAIClassifier) ask(ctx context.Context, query string) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Classification{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, errors.New("chat completion returned no choices")
	}
	return parseModelReply(resp.Choices[0].Message.Content)
}

type modelReply struct {
	Intent   string              `json:"intent"`
	Month    *string             `json:"month"`
	Category *string             `json:"category"`
	Amount   decimal.NullDecimal `json:"amount"`
}

func parseModelReply(content string) (Classification, error) {
	var r modelReply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return Classification{}, fmt.Errorf("decode model reply: %w", err)
	}

	c := Classification{Intent: Intent(strings.ToLower(strings.TrimSpace(r.Intent)))}
	if !c.Intent.Valid() {
		return Classification{}, fmt.Errorf("%w %q", ErrUnknownIntentName, r.Intent)
	}
	if r.Month != nil && strings.TrimSpace(*r.Month) != "" {
		m, err := core.ParseMonth(*r.Month)
		if err != nil {
			return Classification{}, err
		}
		c.Month = m
	}
	if r.Category != nil {
		c.Category = strings.TrimSpace(*r.Category)
	}
	if r.Amount.Valid && r.Amount.Decimal.IsPositive() {
		c.Amount = r.Amount
	}
	return c, nil
}
