package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/validator"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Health 存活检查
// @Summary  存活检查
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪检查：配置闸门不通过时返回 503
// @Summary  就绪检查
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := []error{
		validator.CheckCompletionConfig(&h.cfg.AI),
		validator.CheckCaptchaConfig(&h.cfg.Captcha),
	}
	for _, err := range checks {
		if err == nil {
			continue
		}
		details := err.Error()
		if e, ok := apperr.As(err); ok {
			details = e.Message
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": details,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"provider":     h.providerName(),
		"verification": h.cfg.Captcha.Mode().String(),
	})
}

func (h *HealthHandler) providerName() string {
	if h.cfg.AI.Provider == "" {
		return "http"
	}
	return h.cfg.AI.Provider
}
