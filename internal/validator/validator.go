// Package validator 校验请求体与运行所需的环境配置
package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
)

const (
	// MinRequestLength 描述最短长度
	MinRequestLength = 1
	// MaxRequestLength 描述最长长度（UTF-16 码元）
	MaxRequestLength = 50
	// DefaultQuantity 未指定数量时返回的图标个数
	DefaultQuantity = 3
	// MinQuantity 数量下限
	MinQuantity = 1
	// MaxQuantity 数量上限
	MaxQuantity = 10
)

// quantityFields 数量字段名，按优先级排列；qtty 为短字段名变体
var quantityFields = []string{"quantity", "qtty"}

// ParseBody 解析并校验原始请求体
func ParseBody(body []byte) (*model.IconRequest, error) {
	if len(body) == 0 {
		return nil, errMissingBody()
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errInvalidJSON(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errInvalidJSON(errors.New("unexpected data after top-level value"))
	}

	return ValidateBody(raw)
}

// ValidateBody 校验已解析的请求体
// 依次校验 platform、request、quantity，遇到第一个错误即返回
func ValidateBody(raw any) (*model.IconRequest, error) {
	if isFalsy(raw) {
		return nil, errMissingBody()
	}
	fields, _ := raw.(map[string]any)

	platform, err := validatePlatform(fields["platform"])
	if err != nil {
		return nil, err
	}

	request, err := validateRequest(fields["request"])
	if err != nil {
		return nil, err
	}

	quantity, err := validateQuantity(lookupQuantity(fields))
	if err != nil {
		return nil, err
	}

	return &model.IconRequest{
		Platform: platform,
		Request:  request,
		Quantity: quantity,
	}, nil
}

func validatePlatform(v any) (model.Platform, error) {
	if isFalsy(v) {
		return "", apperr.Validation(
			"Missing Required Field",
			"Missing required field: platform",
			fmt.Sprintf("Specify icon platform (%s)", strings.Join(model.SupportedPlatforms(), ", ")),
		)
	}

	s, ok := v.(string)
	if !ok || !model.Platform(s).IsSupported() {
		return "", apperr.Validation(
			"Invalid Platform",
			"Invalid icon platform specified",
			fmt.Sprintf("Supported platforms: %s. Received: %v", strings.Join(model.SupportedPlatforms(), ", "), v),
		).WithContext("supported_platforms", model.SupportedPlatforms())
	}

	return model.Platform(s), nil
}

func validateRequest(v any) (string, error) {
	if isFalsy(v) {
		return "", apperr.Validation(
			"Missing Required Field",
			"Missing required field: request",
			"Specify icon description for search",
		)
	}

	s, ok := v.(string)
	if !ok {
		return "", apperr.Validation(
			"Invalid Request",
			"Request must be a string",
			"Request field must contain icon description text",
		)
	}

	trimmed := strings.TrimSpace(s)
	length := textLength(trimmed)

	if length < MinRequestLength {
		return "", apperr.Validation(
			"Invalid Request",
			"Request cannot be empty",
			"Request field must contain icon description text",
		)
	}

	if length > MaxRequestLength {
		return "", apperr.Validation(
			"Request Too Long",
			"Request description exceeds maximum length",
			fmt.Sprintf("Maximum request length is %d characters. Current length: %d", MaxRequestLength, length),
		).WithContext("current_length", length).WithContext("max_allowed", MaxRequestLength)
	}

	return trimmed, nil
}

func lookupQuantity(fields map[string]any) any {
	for _, name := range quantityFields {
		if v, ok := fields[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

func validateQuantity(v any) (int, error) {
	if v == nil {
		return DefaultQuantity, nil
	}

	n, ok := v.(json.Number)
	if ok {
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) && f >= MinQuantity && f <= MaxQuantity {
			return int(f), nil
		}
	}

	return 0, apperr.Validation(
		"Invalid Quantity",
		fmt.Sprintf("Quantity must be an integer between %d and %d", MinQuantity, MaxQuantity),
		fmt.Sprintf("Valid range: %d-%d. Received: %v", MinQuantity, MaxQuantity, v),
	).WithContext("min_allowed", MinQuantity).WithContext("max_allowed", MaxQuantity)
}

// CheckCompletionConfig 检查补全服务所需的 TOKEN 与 BASE_URL
func CheckCompletionConfig(cfg *config.AIConfig) error {
	if cfg.Token == "" {
		return apperr.Configuration("Missing authorization token", "Environment variable TOKEN is not set")
	}
	if cfg.BaseURL == "" {
		return apperr.Configuration("Missing base URL", "Environment variable BASE_URL is not set")
	}
	return nil
}

// CheckCaptchaConfig 检查人机验证配置；测试模式下不要求 CAPTCHA_SECRET
func CheckCaptchaConfig(cfg *config.CaptchaConfig) error {
	if cfg.Mode() == config.VerificationBypassed {
		return nil
	}
	if cfg.Secret == "" {
		return apperr.Configuration("Missing SmartCaptcha configuration", "Environment variable CAPTCHA_SECRET is not set")
	}
	return nil
}

func errMissingBody() error {
	return apperr.Validation(
		"Bad Request",
		"Missing request body",
		"Request must contain JSON body with platform and request fields",
	)
}

func errInvalidJSON(err error) error {
	return apperr.Validation(
		"Invalid JSON",
		"Invalid JSON in request body",
		"Check JSON syntax. Error: "+err.Error(),
	)
}

// isFalsy 缺失、null、false、空串与 0 都视为未填写
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}

// textLength 按 UTF-16 码元计数，与浏览器端的字符串长度一致
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
