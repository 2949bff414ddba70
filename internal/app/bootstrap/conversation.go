package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/appointment-assistant/internal/config"
	"github.com/wolfman30/appointment-assistant/internal/conversation"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// BuildClassifier picks the intent classifier named by LLM_PROVIDER. With
// "bedrock" and a Gemini key both present, Gemini serves as the fallback
// model. The returned close func releases model clients and is never nil.
func BuildClassifier(ctx context.Context, cfg *appconfig.Config, loc *time.Location, logger *logging.Logger) (conversation.Classifier, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.LLMProvider {
	case "", "none":
		logger.Info("using keyword intent classifier")
		return conversation.NewKeywordClassifier(loc), noop, nil

	case "bedrock":
		if cfg.BedrockModelID == "" {
			return nil, noop, fmt.Errorf("bootstrap: bedrock selected but BEDROCK_MODEL_ID is empty")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		var client conversation.LLMClient = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		closer := noop
		if cfg.GeminiAPIKey != "" {
			gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
			if err != nil {
				logger.Warn("gemini fallback unavailable", "error", err)
			} else {
				client = conversation.NewFallbackLLMClient(client, gemini, logger)
				closer = gemini.Close
			}
		}
		logger.Info("using bedrock intent classifier", "model", cfg.BedrockModelID)
		return conversation.NewLLMClassifier(client, "", loc, logger), closer, nil

	case "gemini":
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini classifier: %w", err)
		}
		logger.Info("using gemini intent classifier", "model", cfg.GeminiModelID)
		return conversation.NewLLMClassifier(gemini, "", loc, logger), gemini.Close, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown llm provider %q", cfg.LLMProvider)
	}
}
