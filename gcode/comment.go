package gcode

import (
	"fmt"
	"strconv"
	"strings"
)

// IsComment reports whether the line is a comment line.
func IsComment(text string) bool { return strings.HasPrefix(text, CommentMarker) }

// IsIgnored reports whether the line is a machine setting or an indented
// continuation, both of which carry no geometry.
func IsIgnored(text string) bool {
	return strings.HasPrefix(text, MachineSetting) || strings.HasPrefix(text, " ")
}

// Feature returns the feature name of a "; FEATURE: <name>" annotation.
func Feature(text string) (string, bool) {
	if !strings.HasPrefix(text, FeatureAnnotation) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, FeatureAnnotation)), true
}

// LineWidth parses a "; LINE_WIDTH: <number>" annotation. ok is false when
// the line is not such an annotation; err is set when it is but the value
// cannot be parsed.
func LineWidth(text string) (width float64, ok bool, err error) {
	if !strings.HasPrefix(text, LineWidthAnnotation) {
		return 0, false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, LineWidthAnnotation))
	if len(fields) == 0 {
		return 0, true, fmt.Errorf("线宽注释缺少数值")
	}
	width, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, true, fmt.Errorf("线宽 %q 无法解析: %w", fields[0], err)
	}
	if width < 0 {
		return 0, true, fmt.Errorf("线宽 %q 为负数", fields[0])
	}
	return width, true, nil
}

// DeclaredHeight parses the last whitespace-separated token of text.
func DeclaredHeight(text string) (float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("层高行为空")
	}
	last := fields[len(fields)-1]
	h, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, fmt.Errorf("层高 %q 无法解析: %w", last, err)
	}
	return h, nil
}
