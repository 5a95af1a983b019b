package gcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Markers and annotation prefixes understood in the program text.
const (
	LayerChangeMarker   = "; CHANGE_LAYER"
	CommentMarker       = ";"
	FeatureAnnotation   = "; FEATURE:"
	LineWidthAnnotation = "; LINE_WIDTH:"
	MachineSetting      = "M"
)

// heightLineIndex is the position of the declared-height line inside a chunk.
const heightLineIndex = 2

// Line is one raw line of the program with its 1-based position in the file.
type Line struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk holds the lines of one layer, starting with its layer-change marker.
type Chunk struct {
	Lines []Line `json:"lines"`
}

// HeightLine returns the line that declares the layer height, if the chunk
// is long enough to have one.
func (c Chunk) HeightLine() (Line, bool) {
	if len(c.Lines) <= heightLineIndex {
		return Line{}, false
	}
	return c.Lines[heightLineIndex], true
}

// ReadLines reads the whole program. Line endings are stripped.
func ReadLines(r io.Reader) ([]Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var lines []Line
	n := 0
	for scanner.Scan() {
		n++
		lines = append(lines, Line{Number: n, Text: strings.TrimRight(scanner.Text(), "\r")})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取第 %d 行失败: %w", n+1, err)
	}
	return lines, nil
}

// SplitLayers partitions lines into layer chunks at each layer-change marker.
// Everything before the first marker is the print header and is dropped; an
// input without markers yields no chunks.
func SplitLayers(lines []Line) []Chunk {
	var chunks []Chunk
	var current []Line
	started := false

	for _, line := range lines {
		if strings.HasPrefix(line.Text, LayerChangeMarker) {
			started = true
			if len(current) > 0 {
				chunks = append(chunks, Chunk{Lines: current})
				current = nil
			}
		}
		if started {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, Chunk{Lines: current})
	}
	return chunks
}
