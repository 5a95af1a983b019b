package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ByLCY/gcodesolid/convert"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type summaryRow struct {
	layer int
	text  string
}

// renderSummary 按层号输出每层结果，缺少层高而被跳过的层也在其中。
func renderSummary(r *convert.Report) string {
	var rows []summaryRow
	for _, d := range r.Missing {
		rows = append(rows, summaryRow{d.Layer, errStyle.Render(fmt.Sprintf("跳过: %v", d))})
	}
	for _, l := range r.Layers {
		head := dimStyle.Render(fmt.Sprintf("z=%.3f h=%.3f", l.Z, l.Height))
		var text string
		switch {
		case l.Err != nil:
			text = errStyle.Render(fmt.Sprintf("失败: %v", l.Err))
		case l.Path == "":
			text = warnStyle.Render("无实体，未导出")
		default:
			text = okStyle.Render(fmt.Sprintf("%d 段", l.Built)) + " → " + l.Path
		}
		if l.Skipped > 0 {
			text += warnStyle.Render(fmt.Sprintf("  跳过 %d 段", l.Skipped))
		}
		if n := len(l.Diagnostics); n > 0 {
			text += dimStyle.Render(fmt.Sprintf("  诊断 %d 条", n))
		}
		rows = append(rows, summaryRow{l.Index, head + "  " + text})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].layer < rows[j].layer })

	var b strings.Builder
	b.WriteString(titleStyle.Render("gcodesolid · "+filepath.Base(r.Input)) + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "  层 %-4d %s\n", row.layer, row.text)
	}
	fmt.Fprintf(&b, "已导出 %d 层，失败 %d 层，诊断 %d 条\n",
		r.Exported(), len(r.Errors()), len(r.Diagnostics()))
	if hasGaps(r) {
		b.WriteString(dimStyle.Render("未导出的层不生成文件，输出文件编号可能不连续") + "\n")
	}
	return b.String()
}

// hasGaps reports whether some layer before the last exported one has no file.
func hasGaps(r *convert.Report) bool {
	last := 0
	for _, l := range r.Layers {
		if l.Path != "" {
			last = l.Index
		}
	}
	if last == 0 {
		return false
	}
	for _, d := range r.Missing {
		if d.Layer < last {
			return true
		}
	}
	for _, l := range r.Layers {
		if l.Path == "" && l.Index < last {
			return true
		}
	}
	return false
}
