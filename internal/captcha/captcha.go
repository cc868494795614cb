// Package captcha 实现 Yandex SmartCaptcha 人机验证
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/metrics"
)

const (
	// DefaultValidateURL SmartCaptcha 校验接口
	DefaultValidateURL = "https://smartcaptcha.yandexcloud.net/validate"
	// DefaultTimeout 校验请求超时
	DefaultTimeout = 5 * time.Second
	// TokenHeader 客户端提交 token 的请求头
	TokenHeader = "Smart-Token"
)

// 错误标签
const (
	ErrMissingToken      = "Missing Token"
	ErrConfiguration     = "Configuration Error"
	ErrValidationService = "Validation Service Error"
	ErrValidationFailed  = "Captcha Validation Failed"
	ErrNetwork           = "Network Error"
)

// Outcome 一次人机验证的结果，不做持久化
type Outcome struct {
	Valid   bool
	Host    string
	Message string
	Error   string
	Details string
}

// Err 把失败结果转换为结构化错误；配置错误为 500，其余为 403
func (o *Outcome) Err() error {
	if o.Valid {
		return nil
	}
	kind := apperr.KindVerification
	if o.Error == ErrConfiguration {
		kind = apperr.KindConfiguration
	}
	return apperr.New(kind, o.Error, o.Message, o.Details)
}

// Verifier 人机验证闸门
type Verifier struct {
	mode        config.VerificationMode
	secret      string
	validateURL string
	client      *http.Client
}

// NewVerifier 创建验证器；client 为空时按配置超时新建
func NewVerifier(cfg *config.CaptchaConfig, client *http.Client) *Verifier {
	validateURL := cfg.ValidateURL
	if validateURL == "" {
		validateURL = DefaultValidateURL
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Verifier{
		mode:        cfg.Mode(),
		secret:      cfg.Secret,
		validateURL: validateURL,
		client:      client,
	}
}

// Mode 当前验证模式
func (v *Verifier) Mode() config.VerificationMode {
	return v.mode
}

type validateResponse struct {
	Status  string `json:"status"`
	Host    string `json:"host"`
	Message string `json:"message"`
}

// Verify 校验 token；网络错误只体现在结果里，不向上抛出
func (v *Verifier) Verify(ctx context.Context, token, ip string) *Outcome {
	outcome := v.verify(ctx, token, ip)

	result := "valid"
	if !outcome.Valid {
		result = outcome.Error
	}
	metrics.ObserveVerification(v.mode.String(), result)

	return outcome
}

func (v *Verifier) verify(ctx context.Context, token, ip string) *Outcome {
	if v.mode == config.VerificationBypassed {
		if token == "" {
			return missingToken()
		}
		return &Outcome{
			Valid:   true,
			Host:    "test-mode",
			Message: "Token validated in test mode",
		}
	}

	if v.secret == "" {
		return &Outcome{
			Error:   ErrConfiguration,
			Message: "SmartCaptcha secret not configured",
			Details: "Environment variable CAPTCHA_SECRET is not set",
		}
	}

	if token == "" {
		return missingToken()
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("token", token)
	if ip != "" {
		form.Set("ip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.validateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return networkError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Outcome{
			Error:   ErrValidationService,
			Message: "Failed to connect to SmartCaptcha validation service",
			Details: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	var result validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return networkError(err)
	}

	if result.Status == "ok" {
		host := result.Host
		if host == "" {
			host = "unknown"
		}
		message := result.Message
		if message == "" {
			message = "Token validated successfully"
		}
		return &Outcome{Valid: true, Host: host, Message: message}
	}

	message := result.Message
	if message == "" {
		message = "Token validation failed"
	}
	return &Outcome{
		Error:   ErrValidationFailed,
		Message: message,
		Details: "SmartCaptcha validation returned: " + result.Status,
	}
}

func missingToken() *Outcome {
	return &Outcome{
		Error:   ErrMissingToken,
		Message: "SmartCaptcha token is required",
		Details: "Header 'smart-token' is missing or empty",
	}
}

func networkError(err error) *Outcome {
	log.Error().Err(err).Msg("SmartCaptcha validation error")
	return &Outcome{
		Error:   ErrNetwork,
		Message: "Failed to validate SmartCaptcha token",
		Details: err.Error(),
	}
}

// ExtractToken 从请求头读取 token（Header.Get 不区分大小写，smart-token 与 Smart-Token 均可）
// 原样返回，只有空值视为缺失
func ExtractToken(h http.Header) string {
	return h.Get(TokenHeader)
}

// ipHeaders 按优先级排列的客户端 IP 请求头
var ipHeaders = []string{"X-Real-Ip", "X-Client-Ip"}

// ExtractIP 提取客户端 IP
// 优先 X-Forwarded-For 的第一个地址，其次 X-Real-Ip、X-Client-Ip，最后使用连接对端地址
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	for _, name := range ipHeaders {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return v
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return ""
}
