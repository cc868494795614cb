package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/ctxutil"
)

const (
	// RequestIDHeader 请求 ID 头，函数运行时会写入平台的 requestId
	RequestIDHeader = "X-Request-Id"
	// RequestIDKey gin.Context 中保存请求 ID 的 key
	RequestIDKey = "request_id"
	// maxRequestIDLength 外部传入的请求 ID 长度上限
	maxRequestIDLength = 128
)

// RequestID 请求 ID 中间件：沿用调用方传入的 ID，否则生成 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}
