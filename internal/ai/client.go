package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/chain"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/completion"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
)

// NewCompleter 按 provider 创建补全客户端
// http（默认）直接调用 BASE_URL；openai、ark 通过 eino ChatModel 调用
func NewCompleter(ctx context.Context, cfg *config.AIConfig) (completion.Completer, error) {
	switch cfg.Provider {
	case "", completion.ProviderHTTP:
		log.Debug().Str("base_url", cfg.BaseURL).Msg("using raw HTTP completion client")
		return completion.NewHTTPCompleter(cfg, nil), nil
	case "openai", "ark":
		iconChain, err := chain.NewIconChain(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create icon chain: %w", err)
		}
		log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("using eino chat model")
		return iconChain, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
