package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将模板中的 ${name} 替换为 vars 中的值。
// 若变量不存在，则保留原占位符。
func Interpolate(text string, vars map[string]any) string {
	if len(vars) == 0 {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name := strings.TrimSpace(groups[1])
		if name == "" {
			return match
		}
		if val, ok := vars[name]; ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

// LayerFile 根据模板生成第 layer 层（1 起）的输出路径。
// 可用变量：base（输入文件名去掉扩展名）、layer、ext。
// dir 为空时使用输入文件所在目录。
func LayerFile(template, input, dir string, layer int, ext string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := Interpolate(template, map[string]any{
		"base":  base,
		"layer": layer,
		"ext":   ext,
	})
	if exprPattern.MatchString(name) {
		return "", fmt.Errorf("输出文件名模板 %q 含有未知变量", template)
	}
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("输出文件名模板 %q 生成了无效文件名 %q", template, name)
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name), nil
}
