package toolpath

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrParseAmbiguity marks a motion line that matched no classification rule.
	ErrParseAmbiguity = errors.New("无法识别的运动指令")
	// ErrLayerHeightMissing marks a chunk without a parsable height line.
	ErrLayerHeightMissing = errors.New("缺少层高")
	// ErrArcUnsupported marks an arc move that was detected but not converted.
	ErrArcUnsupported = errors.New("圆弧指令未转换")
)

// Diagnostic ties an error to a layer and a source line.
type Diagnostic struct {
	Layer int    `json:"layer"`
	Line  int    `json:"line,omitempty"`
	Text  string `json:"text,omitempty"`
	Err   error  `json:"-"`
}

func (d Diagnostic) Error() string {
	switch {
	case d.Line > 0 && d.Text != "":
		return fmt.Sprintf("第 %d 层第 %d 行 %q: %v", d.Layer, d.Line, d.Text, d.Err)
	case d.Line > 0:
		return fmt.Sprintf("第 %d 层第 %d 行: %v", d.Layer, d.Line, d.Err)
	default:
		return fmt.Sprintf("第 %d 层: %v", d.Layer, d.Err)
	}
}

func (d Diagnostic) Unwrap() error { return d.Err }

// MarshalJSON includes the rendered message, since Err itself does not marshal.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Layer   int    `json:"layer"`
		Line    int    `json:"line,omitempty"`
		Text    string `json:"text,omitempty"`
		Message string `json:"message"`
	}{d.Layer, d.Line, d.Text, d.Error()})
}
