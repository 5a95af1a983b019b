package gcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	gcodeLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `;[^\n]*`},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)`},
		{Name: "Letter", Pattern: `[A-Za-z]`},
	})

	blockParser = participle.MustBuild[Block](
		participle.Lexer(gcodeLexer),
		participle.Elide("Whitespace", "Comment"),
	)
)

// Block is one parsed G-code line: a command word followed by parameter words.
type Block struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Words []*Word        `parser:"@@+"`
}

// Word is a single address letter with its numeric value, eg. X10.5 or E-.8.
type Word struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Letter Letter         `parser:"@Letter"`
	Value  float64        `parser:"@Number"`
}

// Letter upper-cases the address letter on capture so "g1 x2" reads as "G1 X2".
type Letter string

// Capture implements participle.Capture.
func (l *Letter) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("address letter capture requires value")
	}
	*l = Letter(strings.ToUpper(values[0]))
	return nil
}

// ParseBlock parses a single line of G-code. Trailing comments are ignored.
func ParseBlock(text string) (*Block, error) {
	return blockParser.ParseString("", text)
}

// Command returns the command word, eg. "G1" or "M104".
func (b *Block) Command() string {
	if b == nil || len(b.Words) == 0 {
		return ""
	}
	w := b.Words[0]
	return string(w.Letter) + strconv.FormatFloat(w.Value, 'f', -1, 64)
}

// Params returns the parameter words keyed by letter. A repeated letter keeps
// its last value.
func (b *Block) Params() Params {
	params := Params{}
	if b == nil || len(b.Words) < 2 {
		return params
	}
	for _, w := range b.Words[1:] {
		params[string(w.Letter)] = w.Value
	}
	return params
}

// Params maps address letters to values for one block.
type Params map[string]float64

// Has reports whether every given letter is present.
func (p Params) Has(letters ...string) bool {
	for _, l := range letters {
		if _, ok := p[l]; !ok {
			return false
		}
	}
	return true
}

// Only reports whether p carries no letter outside the allowed set.
func (p Params) Only(allowed ...string) bool {
	for l := range p {
		found := false
		for _, a := range allowed {
			if l == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
