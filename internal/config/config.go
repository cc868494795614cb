package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Captcha CaptchaConfig `mapstructure:"captcha"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Swagger      bool          `mapstructure:"swagger"` // 是否挂载 /swagger 文档
}

// AIConfig 补全服务配置
// Token 与 BaseURL 来自环境变量 TOKEN / BASE_URL，缺失时按请求返回 500 而不是拒绝启动
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // http, openai, ark
	Token    string          `mapstructure:"token"`
	BaseURL  string          `mapstructure:"base_url"`
	Model    string          `mapstructure:"model"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig 模型参数
type AIOptionsConfig struct {
	Temperature   *float64 `mapstructure:"temperature"`     // 为空时使用默认值，0 是合法取值
	MinMaxTokens  int      `mapstructure:"min_max_tokens"`  // max_tokens 下限
	TokensPerIcon int      `mapstructure:"tokens_per_icon"` // 每个图标预留的 token 数
}

// CaptchaConfig SmartCaptcha 人机验证配置
type CaptchaConfig struct {
	Secret      string        `mapstructure:"secret"`
	TestMode    string        `mapstructure:"test_mode"` // 只有字面值 "true" 开启旁路
	NodeEnv     string        `mapstructure:"node_env"`
	ValidateURL string        `mapstructure:"validate_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VerificationMode 人机验证模式
type VerificationMode int

const (
	// VerificationEnforced 调用外部服务校验 token
	VerificationEnforced VerificationMode = iota
	// VerificationBypassed 测试模式，只要求 token 非空
	VerificationBypassed
)

// String 实现 fmt.Stringer
func (m VerificationMode) String() string {
	if m == VerificationBypassed {
		return "bypassed"
	}
	return "enforced"
}

// Mode 根据 CAPTCHA_TEST_MODE / NODE_ENV 推导验证模式
func (c *CaptchaConfig) Mode() VerificationMode {
	if c.TestMode == "true" || c.NodeEnv == "test" {
		return VerificationBypassed
	}
	return VerificationEnforced
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Addr    string `mapstructure:"addr"` // 为空时与业务端口共用
}

// Validate 验证配置有效性
// 只检查进程级配置；TOKEN、BASE_URL、CAPTCHA_SECRET 由请求级配置闸门检查
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	validProviders := map[string]bool{"": true, "http": true, "openai": true, "ark": true}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return errors.New("metrics path must not be empty when metrics are enabled")
	}

	return nil
}
