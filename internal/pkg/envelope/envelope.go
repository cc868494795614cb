// Package envelope 统一的响应封装：固定的 CORS 头、JSON 响应体、按结果选择状态码
package envelope

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
)

const (
	// AllowedMethod 唯一接受的业务方法
	AllowedMethod = http.MethodPost
	// ContentType 所有响应的 Content-Type
	ContentType = "application/json"
	// timestampLayout 毫秒精度的 UTC ISO-8601
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// corsHeaders 每个响应都携带的头
var corsHeaders = [][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "POST, OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, Smart-Token"},
	{"Access-Control-Max-Age", "86400"},
}

// ApplyCORS 写入 CORS 头
func ApplyCORS(h http.Header) {
	for _, kv := range corsHeaders {
		h.Set(kv[0], kv[1])
	}
}

// Preflight 预检请求响应
func Preflight(c *gin.Context) {
	write(c, http.StatusOK, model.MessageResponse{Message: "CORS preflight successful"})
}

// MethodNotAllowed 非 POST 请求响应
func MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", AllowedMethod)
	write(c, http.StatusMethodNotAllowed, model.ErrorResponse{
		Error:   "Method Not Allowed",
		Message: "Only POST requests are supported for this endpoint",
		Details: "Use POST method with JSON request body",
	})
}

// Success 成功响应
func Success(c *gin.Context, result *model.IconResult, meta model.SuggestionMeta) {
	write(c, http.StatusOK, model.SuccessResponse{
		Success: true,
		Data:    result,
		Meta:    meta,
	})
}

// Error 校验、配置、人机验证阶段的错误响应
// 响应体为 {error, message, details}，错误的 Context 字段并入响应体
func Error(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.KindValidation, "Bad Request", "Invalid request", err)
	}

	body := gin.H{
		"error":   e.Code,
		"message": e.Message,
		"details": e.Details,
	}
	for k, v := range e.Context {
		body[k] = v
	}

	write(c, e.Kind.HTTPStatus(), body)
}

// ProcessingError 调用补全服务阶段的错误响应
// 上游返回非成功状态为 502，其余为 400
func ProcessingError(c *gin.Context, err error, requestID string, now time.Time) {
	status := http.StatusBadRequest
	details := err.Error()
	if e, ok := apperr.As(err); ok {
		details = e.Details
		if e.Kind == apperr.KindUpstream {
			status = http.StatusBadGateway
		}
	}

	write(c, status, model.ErrorResponse{
		Error:     "Processing Error",
		Message:   "Error processing request",
		Details:   details,
		RequestID: requestID,
		Timestamp: now.UTC().Format(timestampLayout),
	})
}

func write(c *gin.Context, status int, body any) {
	ApplyCORS(c.Writer.Header())

	data, err := json.Marshal(body)
	if err != nil {
		c.Data(http.StatusInternalServerError, ContentType,
			[]byte(`{"error":"Internal Server Error","message":"failed to encode response","details":""}`))
		return
	}
	c.Data(status, ContentType, data)
}
