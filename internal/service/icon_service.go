package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/completion"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/prompt"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/ctxutil"
)

// IconService 图标查询服务
type IconService struct {
	builder   *prompt.Builder
	completer completion.Completer
}

// NewIconService 创建图标查询服务
func NewIconService(builder *prompt.Builder, completer completion.Completer) *IconService {
	return &IconService{
		builder:   builder,
		completer: completer,
	}
}

// Model 返回请求使用的模型名（写入响应 meta）
func (s *IconService) Model() string {
	return s.builder.Model()
}

// Suggest 构建提示词并调用补全服务
func (s *IconService) Suggest(ctx context.Context, req *model.IconRequest) (*model.IconResult, error) {
	logger := log.With().
		Str("request_id", ctxutil.RequestID(ctx)).
		Str("platform", string(req.Platform)).
		Int("quantity", req.Quantity).
		Logger()

	p := s.builder.Build(req)

	result, err := s.completer.Complete(ctx, p)
	if err != nil {
		logger.Error().Err(err).Msg("icon suggestion failed")
		return nil, err
	}

	logger.Info().
		Strs("icon_names", result.IconNames).
		Msg("icon suggestion completed")

	return result, nil
}
