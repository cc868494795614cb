// Package completion 调用补全服务并校验返回的图标列表
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/ai/prompt"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/ctxutil"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/metrics"
)

// ProviderHTTP 直接调用 chat-completion 兼容接口
const ProviderHTTP = "http"

// maxBodySize 上游响应体读取上限
const maxBodySize = 1 << 20

// Completer 补全服务客户端
type Completer interface {
	Complete(ctx context.Context, p *prompt.Prompt) (*model.IconResult, error)
}

// HTTPCompleter 通过一次 JSON POST 调用补全服务
type HTTPCompleter struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewHTTPCompleter 创建 HTTP 补全客户端；client 为空时按配置超时新建
func NewHTTPCompleter(cfg *config.AIConfig, client *http.Client) *HTTPCompleter {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPCompleter{
		client:  client,
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete 发送补全请求并解析 choices[0].message.content
func (c *HTTPCompleter) Complete(ctx context.Context, p *prompt.Prompt) (*model.IconResult, error) {
	start := time.Now()
	result, err := c.complete(ctx, p)
	metrics.ObserveUpstream(ProviderHTTP, outcome(err), time.Since(start))
	return result, err
}

func (c *HTTPCompleter) complete(ctx context.Context, p *prompt.Prompt) (*model.IconResult, error) {
	payload, err := json.Marshal(newChatRequest(p))
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Transport("AI API request failed: "+err.Error(), err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if id := ctxutil.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Transport("AI API request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperr.Transport("AI API response could not be read: "+err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("model", p.Model).
			Msg("AI API returned non-success status")
		return nil, apperr.Upstream(fmt.Sprintf("AI API returned error: %d %s. Response: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), string(body)), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Contract("Invalid AI response: " + err.Error())
	}

	if len(parsed.Choices) == 0 {
		return nil, apperr.Contract("Invalid AI response: missing choices array")
	}

	msg := parsed.Choices[0].Message
	if msg == nil || msg.Content == "" {
		return nil, apperr.Contract("Invalid AI response: missing content in message")
	}

	return ParseContent(msg.Content, p.Quantity)
}

func newChatRequest(p *prompt.Prompt) *chatRequest {
	messages := make([]chatMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return &chatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

// outcome 指标标签
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}
