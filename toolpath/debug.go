package toolpath

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将逐层挤出结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(layers []Layer, failed []Diagnostic, path string) error {
	data, err := json.MarshalIndent(struct {
		Layers []Layer      `json:"layers"`
		Failed []Diagnostic `json:"failed,omitempty"`
	}{layers, failed}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
