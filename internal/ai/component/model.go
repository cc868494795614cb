package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
)

// defaultArkBaseURL 火山方舟默认地址
const defaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// NewChatModel 创建 ChatModel
// 支持的 Provider: openai, ark；http 直连模式不经过 ChatModel
// 注意 openai 的 BaseURL 是 API 前缀（会自动拼接 /chat/completions），而不是完整接口地址
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIChatModel(ctx, cfg)
	case "ark":
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// newOpenAIChatModel 创建 OpenAI 兼容的 ChatModel（DeepSeek 等）
func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.Token,
		Timeout: cfg.Timeout,
	}

	// 温度与 max_tokens 由每次请求的 Option 传入
	// Base URL (用于代理或兼容 API)
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	return openai.NewChatModel(ctx, modelCfg)
}

// newArkChatModel 创建 Ark ChatModel（使用 eino-ext 模块）
func newArkChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultArkBaseURL
	}

	modelCfg := &arkext.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.Token,
		BaseURL: baseURL,
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		modelCfg.Timeout = &timeout
	}

	return arkext.NewChatModel(ctx, modelCfg)
}
