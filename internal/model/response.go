package model

// IconResult 补全服务返回并校验后的图标名称
type IconResult struct {
	IconNames []string `json:"icon_names"`
}

// SuggestionMeta 成功响应的元信息
type SuggestionMeta struct {
	Platform Platform `json:"platform"`
	Request  string   `json:"request"`
	Quantity int      `json:"quantity"`
	Model    string   `json:"model"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool           `json:"success"`
	Data    *IconResult    `json:"data"`
	Meta    SuggestionMeta `json:"meta"`
}

// ErrorResponse 错误响应的固定部分（附加字段见各错误）
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MessageResponse 预检请求响应
type MessageResponse struct {
	Message string `json:"message"`
}
