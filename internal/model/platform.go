package model

// Platform 图标库标识
type Platform string

// 支持的图标库
const (
	PlatformAntd      Platform = "antd"
	PlatformMUI       Platform = "mui"
	PlatformFA        Platform = "fa"
	PlatformFeather   Platform = "feather"
	PlatformIon       Platform = "ion"
	PlatformBootstrap Platform = "bootstrap"
	PlatformTabler    Platform = "tabler"
	PlatformRemix     Platform = "remix"
	PlatformHero      Platform = "hero"
	PlatformLucide    Platform = "lucide"
	PlatformUnicode   Platform = "unicode"
)

// supportedPlatforms 固定顺序，错误响应按此顺序回显
var supportedPlatforms = []Platform{
	PlatformAntd,
	PlatformMUI,
	PlatformFA,
	PlatformFeather,
	PlatformIon,
	PlatformBootstrap,
	PlatformTabler,
	PlatformRemix,
	PlatformHero,
	PlatformLucide,
	PlatformUnicode,
}

// SupportedPlatforms 返回支持的图标库列表副本
func SupportedPlatforms() []string {
	out := make([]string, len(supportedPlatforms))
	for i, p := range supportedPlatforms {
		out[i] = string(p)
	}
	return out
}

// IsSupported 判断图标库是否受支持
func (p Platform) IsSupported() bool {
	for _, s := range supportedPlatforms {
		if s == p {
			return true
		}
	}
	return false
}
