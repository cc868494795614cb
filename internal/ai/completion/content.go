package completion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/model"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
)

// ParseContent 解析模型输出的文本并校验结构
// 必须是含 icon_names 的 JSON 对象，数组长度等于 quantity 且元素均为字符串
func ParseContent(content string, quantity int) (*model.IconResult, error) {
	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, apperr.Contract(fmt.Sprintf("AI returned invalid JSON: %s. Content: %s", err.Error(), content))
	}

	obj, _ := payload.(map[string]any)
	raw, ok := obj["icon_names"]
	if !ok || raw == nil {
		return nil, apperr.Contract("AI response missing icon_names field")
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, apperr.Contract("icon_names field must be an array")
	}

	if len(items) != quantity {
		return nil, apperr.Contract(fmt.Sprintf("Expected %d icons, received: %d", quantity, len(items)))
	}

	names := make([]string, 0, len(items))
	var invalid []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			b, _ := json.Marshal(item)
			invalid = append(invalid, string(b))
			continue
		}
		names = append(names, s)
	}
	if len(invalid) > 0 {
		return nil, apperr.Contract("Invalid icon formats: " + strings.Join(invalid, ", "))
	}

	return &model.IconResult{IconNames: names}, nil
}
