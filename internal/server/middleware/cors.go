package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/envelope"
)

// CORS 跨域中间件，为所有响应（含健康检查、404）写入固定的 CORS 头
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		envelope.ApplyCORS(c.Writer.Header())
		c.Next()
	}
}
