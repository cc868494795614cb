package chain

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/completion"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/component"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/prompt"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	appmodel "github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/metrics"
)

// IconChain 图标查询链
// 工作流: Prompt -> ChatModel -> JSON 内容 -> 结构校验
type IconChain struct {
	provider  string
	chatModel model.BaseChatModel
}

// NewIconChain 根据配置创建 ChatModel 并组装图标查询链
func NewIconChain(ctx context.Context, cfg *config.AIConfig) (*IconChain, error) {
	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewIconChainWithModel(cfg.Provider, chatModel), nil
}

// NewIconChainWithModel 使用已有的 ChatModel 组装图标查询链
func NewIconChainWithModel(provider string, chatModel model.BaseChatModel) *IconChain {
	return &IconChain{
		provider:  provider,
		chatModel: chatModel,
	}
}

// Complete 实现 completion.Completer
func (c *IconChain) Complete(ctx context.Context, p *prompt.Prompt) (*appmodel.IconResult, error) {
	start := time.Now()

	resp, err := c.chatModel.Generate(ctx, p.Messages,
		model.WithModel(p.Model),
		model.WithTemperature(float32(p.Temperature)),
		model.WithMaxTokens(p.MaxTokens),
	)
	if err != nil {
		appErr := generateError(err)
		metrics.ObserveUpstream(c.provider, appErr.Kind.String(), time.Since(start))
		log.Warn().Err(err).Str("provider", c.provider).Msg("chat model generate failed")
		return nil, appErr
	}

	if resp == nil || resp.Content == "" {
		metrics.ObserveUpstream(c.provider, apperr.KindContract.String(), time.Since(start))
		return nil, apperr.Contract("Invalid AI response: missing content in message")
	}

	result, err := completion.ParseContent(resp.Content, p.Quantity)
	if err != nil {
		metrics.ObserveUpstream(c.provider, apperr.KindContract.String(), time.Since(start))
		return nil, err
	}

	metrics.ObserveUpstream(c.provider, "ok", time.Since(start))

	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		log.Debug().
			Int("prompt_tokens", resp.ResponseMeta.Usage.PromptTokens).
			Int("completion_tokens", resp.ResponseMeta.Usage.CompletionTokens).
			Msg("icon chain completed")
	}

	return result, nil
}

// generateError 网络层失败为 400，其余视为上游返回的错误状态
func generateError(err error) *apperr.Error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.Transport("AI API request failed: "+err.Error(), err)
	}
	return apperr.Upstream("AI API returned error: "+err.Error(), err)
}
