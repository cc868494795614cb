// Package prompt 构建图标查询的补全请求
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
)

const (
	// DefaultModel 默认模型
	DefaultModel = "deepseek-coder"
	// DefaultTemperature 低温度，尽量输出确定的结果
	DefaultTemperature = 0.1
	// DefaultMinMaxTokens max_tokens 下限
	DefaultMinMaxTokens = 50
	// DefaultTokensPerIcon 每个图标预留的 token 数
	DefaultTokensPerIcon = 20
)

// Prompt 发送给补全服务的请求
type Prompt struct {
	Model       string
	Messages    []*schema.Message
	Temperature float64
	MaxTokens   int
	Quantity    int // 期望返回的图标数量，用于校验响应
}

// Builder 补全请求构建器，构建结果只依赖输入
type Builder struct {
	model         string
	temperature   float64
	minMaxTokens  int
	tokensPerIcon int
}

// NewBuilder 根据配置创建构建器，未配置的参数使用默认值
func NewBuilder(cfg *config.AIConfig) *Builder {
	b := &Builder{
		model:         DefaultModel,
		temperature:   DefaultTemperature,
		minMaxTokens:  DefaultMinMaxTokens,
		tokensPerIcon: DefaultTokensPerIcon,
	}
	if cfg == nil {
		return b
	}
	if cfg.Model != "" {
		b.model = cfg.Model
	}
	if cfg.Options.Temperature != nil {
		b.temperature = *cfg.Options.Temperature
	}
	if cfg.Options.MinMaxTokens > 0 {
		b.minMaxTokens = cfg.Options.MinMaxTokens
	}
	if cfg.Options.TokensPerIcon > 0 {
		b.tokensPerIcon = cfg.Options.TokensPerIcon
	}
	return b
}

// Model 返回使用的模型名
func (b *Builder) Model() string {
	return b.model
}

// Build 构建补全请求
func (b *Builder) Build(req *model.IconRequest) *Prompt {
	return &Prompt{
		Model: b.model,
		Messages: []*schema.Message{
			schema.SystemMessage(SystemPrompt(req.Quantity)),
			schema.UserMessage(UserPrompt(req.Platform, req.Request)),
		},
		Temperature: b.temperature,
		MaxTokens:   max(b.minMaxTokens, req.Quantity*b.tokensPerIcon),
		Quantity:    req.Quantity,
	}
}

// libraries 图标库名称与命名规则，顺序与 model.SupportedPlatforms 一致
var libraries = []struct {
	platform   model.Platform
	title      string
	convention string
}{
	{model.PlatformAntd, "Ant Design Icons", "Name + Outlined/Filled/TwoTone (Example: HistoryOutlined)"},
	{model.PlatformMUI, "Material Design Icons", "Name + Outlined/Filled/Rounded/Sharp (Example: HistoryOutlined)"},
	{model.PlatformFA, "FontAwesome", "fa-* (Example: fa-history)"},
	{model.PlatformFeather, "Feather Icons", "lowercase-with-dashes (Example: clock)"},
	{model.PlatformIon, "Ionicons", "ion-* (Example: ion-md-time)"},
	{model.PlatformBootstrap, "Bootstrap Icons", "bi-* (Example: bi-clock-history)"},
	{model.PlatformTabler, "Tabler Icons", "lowercase-with-dashes (Example: history)"},
	{model.PlatformRemix, "Remix Icon", "ri-*-line/ri-*-fill (Example: ri-history-line)"},
	{model.PlatformHero, "Heroicons", "PascalCase + Icon (Example: ClockIcon)"},
	{model.PlatformLucide, "Lucide", "lowercase-with-dashes (Example: history)"},
	{model.PlatformUnicode, "Unicode", "U+XXXX (Example: U+1F4AC)"},
}

// SystemPrompt 系统提示词：命名规则与严格的 JSON 输出约定
func SystemPrompt(quantity int) string {
	var sb strings.Builder

	sb.WriteString("You are an expert in design systems and iconography. ")
	sb.WriteString("Your task is to pick exact icon names from the requested library (platform) ")
	sb.WriteString("that match the user's description (request).\n\n")

	sb.WriteString("STRICT RULES:\n")
	sb.WriteString("1. Reply ONLY with valid JSON, without any explanations.\n")
	sb.WriteString(`2. The reply MUST have exactly this structure: { "icon_names": ["string", "string", ...] }` + "\n")
	fmt.Fprintf(&sb, "3. Return exactly %d icon names.\n", quantity)
	sb.WriteString("4. The first icon is the best match; the rest are alternatives ordered by descending relevance.\n")
	sb.WriteString("5. Use only official icon names of the requested platform.\n")
	sb.WriteString(`6. For the unicode platform return code points formatted as ["U+XXXX", "U+XXXX", ...].` + "\n\n")

	sb.WriteString("Available icon libraries:\n")
	for _, lib := range libraries {
		fmt.Fprintf(&sb, "- %s (%s)\n", lib.title, lib.platform)
	}

	sb.WriteString("\nNaming convention for each library:\n")
	for i, lib := range libraries {
		fmt.Fprintf(&sb, "- %s: %s", lib.title, lib.convention)
		if i < len(libraries)-1 {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// UserPrompt 用户消息：{platform, request} 的 JSON 编码
func UserPrompt(platform model.Platform, request string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(struct {
		Platform model.Platform `json:"platform"`
		Request  string         `json:"request"`
	}{platform, request})
	return strings.TrimSuffix(buf.String(), "\n")
}
