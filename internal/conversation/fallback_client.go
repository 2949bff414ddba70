package conversation

import (
	"context"

	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// FallbackLLMClient tries primary first and retries once on fallback.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient wraps primary. A nil fallback disables the retry.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger.Component("llm_fallback"),
	}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	c.logger.Warn("primary llm failed", "error", err, "fallback_available", c.fallback != nil)
	if c.fallback == nil {
		return LLMResponse{}, err
	}
	resp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback llm failed", "primary_error", err, "fallback_error", fallbackErr)
		return LLMResponse{}, fallbackErr
	}
	return resp, nil
}
