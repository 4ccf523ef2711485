package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pillwise/backend/internal/domain"
	"github.com/pillwise/backend/internal/metrics"
)

const systemInstruction = "You are a careful assistant for a health supplement service. " +
	"Always answer with exactly one JSON object and nothing else."

// ClientConfig holds reasoning client settings
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client sends stage instructions to an OpenAI-compatible chat model
type Client struct {
	chatModel   model.BaseChatModel
	rateLimiter *rate.Limiter
	timeout     time.Duration
	logger      *zap.Logger
}

// NewChatModel builds an eino chat model that is asked to reply in JSON object mode
func NewChatModel(ctx context.Context, cfg ClientConfig) (model.BaseChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise chat model: %w", err)
	}
	return chatModel, nil
}

// NewClient wraps a chat model. Zero config values fall back to defaults.
func NewClient(chatModel model.BaseChatModel, cfg ClientConfig, logger *zap.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		chatModel:   chatModel,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), max(1, rpm/10)),
		timeout:     timeout,
		logger:      logger.With(zap.String("component", "reasoning")),
	}
}

// Complete sends one instruction and returns the raw text of the reply.
// Transport failures wrap domain.ErrReasoningUnavailable; an empty reply wraps
// domain.ErrReasoningContract. There are no retries.
func (c *Client) Complete(ctx context.Context, stage string, instruction string) (string, error) {
	content, err := c.complete(ctx, stage, instruction)
	metrics.RecordReasoningCall(stage, err)
	return content, err
}

func (c *Client) complete(ctx context.Context, stage string, instruction string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrReasoningUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.chatModel.Generate(callCtx, []*schema.Message{
		schema.SystemMessage(systemInstruction),
		schema.UserMessage(instruction),
	})
	if err != nil {
		c.logger.Warn("reasoning call failed",
			zap.String("stage", stage),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", domain.ErrReasoningUnavailable, stage, err)
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: %s: empty response", domain.ErrReasoningContract, stage)
	}

	c.logger.Debug("reasoning call completed",
		zap.String("stage", stage),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_chars", len(resp.Content)))

	return resp.Content, nil
}
