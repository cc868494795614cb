package model

// IconRequest 校验通过的图标查询请求
type IconRequest struct {
	Platform Platform `json:"platform"` // 图标库
	Request  string   `json:"request"`  // 已去除首尾空白的描述
	Quantity int      `json:"quantity"` // 需要返回的图标数量
}

// IconRequestBody 请求体文档结构（仅用于 swagger 描述，实际解析走 validator）
type IconRequestBody struct {
	Platform string `json:"platform" example:"antd"`  // 图标库标识
	Request  string `json:"request" example:"search"` // 图标描述，1~50 字符
	Quantity int    `json:"quantity,omitempty" example:"3"`
}
