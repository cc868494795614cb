// Package function 把 Yandex Cloud Functions 的 HTTP 事件转换为 net/http 请求，
// 让同一个 gin 引擎既能作为常驻服务运行，也能作为函数被调用
package function

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/server/middleware"
)

// Event 函数运行时投递的 HTTP 事件
type Event struct {
	HTTPMethod                      string              `json:"httpMethod"`
	Path                            string              `json:"path,omitempty"`
	URL                             string              `json:"url,omitempty"`
	Headers                         map[string]string   `json:"headers,omitempty"`
	MultiValueHeaders               map[string][]string `json:"multiValueHeaders,omitempty"`
	QueryStringParameters           map[string]string   `json:"queryStringParameters,omitempty"`
	MultiValueQueryStringParameters map[string][]string `json:"multiValueQueryStringParameters,omitempty"`
	RequestContext                  RequestContext      `json:"requestContext"`
	Body                            string              `json:"body"`
	IsBase64Encoded                 bool                `json:"isBase64Encoded"`
}

// RequestContext 事件的调用上下文
type RequestContext struct {
	Identity  Identity `json:"identity"`
	RequestID string   `json:"requestId,omitempty"`
}

// Identity 调用方信息
type Identity struct {
	SourceIP  string `json:"sourceIp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Response 函数运行时期望的响应
type Response struct {
	StatusCode        int                 `json:"statusCode"`
	Headers           map[string]string   `json:"headers"`
	MultiValueHeaders map[string][]string `json:"multiValueHeaders,omitempty"`
	Body              string              `json:"body"`
	IsBase64Encoded   bool                `json:"isBase64Encoded"`
}

// defaultPath 事件未携带路径时使用根路径
const defaultPath = "/"

// NewRequest 把事件转换为 *http.Request
func NewRequest(ctx context.Context, ev *Event) (*http.Request, error) {
	method := ev.HTTPMethod
	if method == "" {
		method = http.MethodPost
	}

	body := []byte(ev.Body)
	if ev.IsBase64Encoded && ev.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	target := &url.URL{Path: ev.Path}
	if target.Path == "" {
		target.Path = defaultPath
	}
	target.RawQuery = query(ev).Encode()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.ContentLength = int64(len(body))
	if len(body) == 0 {
		req.Body = http.NoBody
	}

	for k, values := range ev.MultiValueHeaders {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	for k, v := range ev.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}

	if ev.RequestContext.Identity.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", ev.RequestContext.Identity.UserAgent)
	}
	if ev.RequestContext.RequestID != "" && req.Header.Get(middleware.RequestIDHeader) == "" {
		req.Header.Set(middleware.RequestIDHeader, ev.RequestContext.RequestID)
	}
	if ip := ev.RequestContext.Identity.SourceIP; ip != "" {
		req.RemoteAddr = net.JoinHostPort(ip, "0")
	}

	return req, nil
}

func query(ev *Event) url.Values {
	q := url.Values{}
	for k, values := range ev.MultiValueQueryStringParameters {
		for _, v := range values {
			q.Add(k, v)
		}
	}
	for k, v := range ev.QueryStringParameters {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	return q
}

// Handle 用 handler 处理一个事件并返回函数响应
func Handle(ctx context.Context, handler http.Handler, ev *Event) (*Response, error) {
	req, err := NewRequest(ctx, ev)
	if err != nil {
		return nil, err
	}

	w := newResponseWriter()
	handler.ServeHTTP(w, req)
	return w.response(), nil
}

// responseWriter 在内存中收集响应
type responseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(p)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

var _ http.ResponseWriter = (*responseWriter)(nil)

func (w *responseWriter) response() *Response {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	resp := &Response{
		StatusCode: status,
		Headers:    make(map[string]string, len(w.header)),
		Body:       w.body.String(),
	}
	for k, values := range w.header {
		if len(values) == 0 {
			continue
		}
		resp.Headers[k] = values[0]
		if len(values) > 1 {
			if resp.MultiValueHeaders == nil {
				resp.MultiValueHeaders = map[string][]string{}
			}
			resp.MultiValueHeaders[k] = values
		}
	}
	return resp
}
