package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/captcha"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/envelope"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/metrics"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/server/middleware"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/service"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/validator"
)

// maxBodySize 请求体上限，描述最多 50 个字符
const maxBodySize = 64 << 10

// IconHandler 图标查询处理器
type IconHandler struct {
	aiCfg      *config.AIConfig
	captchaCfg *config.CaptchaConfig
	verifier   *captcha.Verifier
	iconSvc    *service.IconService
	now        func() time.Time
}

// NewIconHandler 创建图标查询处理器
func NewIconHandler(cfg *config.Config, verifier *captcha.Verifier, iconSvc *service.IconService) *IconHandler {
	return &IconHandler{
		aiCfg:      &cfg.AI,
		captchaCfg: &cfg.Captcha,
		verifier:   verifier,
		iconSvc:    iconSvc,
		now:        time.Now,
	}
}

// Suggest 图标查询接口
// @Summary      查询图标名称
// @Description  根据自然语言描述，返回指定图标库中的图标名称
// @Tags         icons
// @Accept       json
// @Produce      json
// @Param        Smart-Token  header    string                 false  "SmartCaptcha token"
// @Param        request      body      model.IconRequestBody  true   "查询请求"
// @Success      200          {object}  model.SuccessResponse
// @Failure      400          {object}  model.ErrorResponse
// @Failure      403          {object}  model.ErrorResponse
// @Failure      405          {object}  model.ErrorResponse
// @Failure      500          {object}  model.ErrorResponse
// @Failure      502          {object}  model.ErrorResponse
// @Router       /api/v1/icons [post]
func (h *IconHandler) Suggest(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		envelope.Preflight(c)
		return
	case http.MethodPost:
	default:
		envelope.MethodNotAllowed(c)
		return
	}

	// 配置闸门：先于任何请求处理，避免消耗上游配额
	if err := validator.CheckCompletionConfig(h.aiCfg); err != nil {
		h.reject(c, err)
		return
	}
	if err := validator.CheckCaptchaConfig(h.captchaCfg); err != nil {
		h.reject(c, err)
		return
	}

	token := captcha.ExtractToken(c.Request.Header)
	ip := captcha.ExtractIP(c.Request)
	if err := h.verifier.Verify(c.Request.Context(), token, ip).Err(); err != nil {
		log.Warn().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("client_ip", ip).
			Err(err).
			Msg("human verification rejected")
		h.reject(c, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		h.reject(c, apperr.Validation("Bad Request", "Request body could not be read", err.Error()))
		return
	}

	req, err := validator.ParseBody(body)
	if err != nil {
		h.reject(c, err)
		return
	}

	result, err := h.iconSvc.Suggest(c.Request.Context(), req)
	if err != nil {
		requestID := c.GetString(middleware.RequestIDKey)
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Bytes("request_body", body).
			Msg("error processing icon request")
		metrics.ObserveSuggestion(string(req.Platform), apperr.KindOf(err).String())
		envelope.ProcessingError(c, err, requestID, h.now())
		return
	}

	metrics.ObserveSuggestion(string(req.Platform), "ok")
	envelope.Success(c, result, model.SuggestionMeta{
		Platform: req.Platform,
		Request:  req.Request,
		Quantity: req.Quantity,
		Model:    h.iconSvc.Model(),
	})
}

// reject 请求在调用上游之前被拒绝
func (h *IconHandler) reject(c *gin.Context, err error) {
	metrics.ObserveSuggestion("", apperr.KindOf(err).String())
	envelope.Error(c, err)
}
