// Package apperr 定义请求处理链路上的结构化错误
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类，决定最终的 HTTP 状态码
type Kind int

const (
	// KindValidation 请求体缺失、JSON 非法、字段非法
	KindValidation Kind = iota
	// KindConfiguration 缺少必需的环境配置
	KindConfiguration
	// KindVerification 人机验证失败
	KindVerification
	// KindUpstream 补全服务返回非 2xx
	KindUpstream
	// KindContract 补全服务响应结构不符合约定
	KindContract
	// KindTransport 补全服务不可达或响应读取失败
	KindTransport
)

// String 实现 fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindVerification:
		return "verification"
	case KindUpstream:
		return "upstream"
	case KindContract:
		return "contract"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// HTTPStatus 错误分类对应的 HTTP 状态码
func (k Kind) HTTPStatus() int {
	switch k {
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindVerification:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// Error 结构化错误
// Code 是响应体里的 error 标签（如 "Invalid Platform"），Context 中的字段会并入响应体
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details string
	Context map[string]any
	Cause   error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext 追加响应体附加字段
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New 创建结构化错误
func New(kind Kind, code, message, details string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap 包装底层错误
func Wrap(kind Kind, code, message string, cause error) *Error {
	e := &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// Validation 创建请求校验错误
func Validation(code, message, details string) *Error {
	return New(KindValidation, code, message, details)
}

// Configuration 创建配置错误
func Configuration(message, details string) *Error {
	return New(KindConfiguration, "Configuration Error", message, details)
}

// Upstream 创建上游服务错误
func Upstream(details string, cause error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Code:    "Upstream Error",
		Message: "AI API request failed",
		Details: details,
		Cause:   cause,
	}
}

// Transport 创建补全服务网络错误；只有上游明确返回非 2xx 才是 502，网络错误按 400 处理
func Transport(details string, cause error) *Error {
	return &Error{
		Kind:    KindTransport,
		Code:    "Transport Error",
		Message: "AI API request failed",
		Details: details,
		Cause:   cause,
	}
}

// Contract 创建上游响应结构错误
func Contract(details string) *Error {
	return New(KindContract, "Contract Error", "Invalid AI response", details)
}

// As 从错误链中取出 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误分类；非结构化错误视为响应结构错误
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindContract
}
