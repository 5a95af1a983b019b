package gcode

import (
	"strings"
)

// Kind tags the result of classifying one motion line.
type Kind int

const (
	// Skip marks a line that was recognised and intentionally ignored.
	Skip Kind = iota
	Travel
	Extrusion
	RetractionTravel
	CircleExtrusion
	Arc
	// Unrecognized marks a motion line that matched no rule.
	Unrecognized
)

func (k Kind) String() string {
	switch k {
	case Skip:
		return "skip"
	case Travel:
		return "travel"
	case Extrusion:
		return "extrusion"
	case RetractionTravel:
		return "retraction-travel"
	case CircleExtrusion:
		return "circle-extrusion"
	case Arc:
		return "arc"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Move is the classification of a single line. X/Y are set for Travel,
// Extrusion, RetractionTravel and Arc; I/J only for Arc.
type Move struct {
	Kind Kind
	X, Y float64
	I, J float64
	// Rule names the table entry that matched, empty for fallbacks.
	Rule string
}

// PrimaryMotion is the command prefix of linear moves.
const PrimaryMotion = "G1"

// Rule is one entry of the classification table.
type Rule struct {
	Name    string
	Command string
	Match   func(p Params) (Move, bool)
}

// Rules is evaluated top to bottom and the first match wins. The order is
// load-bearing: a feed-only move must be rejected before the extrusion rule,
// and the X/Y/Z travel only applies once the plain planar rules have failed.
var Rules = []Rule{
	{
		Name:    "feed-only",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			return Move{Kind: Skip}, p.Has("F") && p.Only("F")
		},
	},
	{
		Name:    "extrusion",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			if !p.Has("X", "Y", "E") || !p.Only("X", "Y", "E", "F") || p["E"] <= 0 {
				return Move{}, false
			}
			return Move{Kind: Extrusion, X: p["X"], Y: p["Y"]}, true
		},
	},
	{
		Name:    "clockwise-arc",
		Command: "G2",
		Match: func(p Params) (Move, bool) {
			if !p.Has("X", "Y", "I", "J", "E") || !p.Only("X", "Y", "I", "J", "E", "F") {
				return Move{}, false
			}
			if p["I"] >= 0 || p["E"] <= 0 {
				return Move{}, false
			}
			return Move{Kind: Arc, X: p["X"], Y: p["Y"], I: p["I"], J: p["J"]}, true
		},
	},
	{
		Name:    "travel",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			if !p.Has("X", "Y", "F") || !p.Only("X", "Y", "F") {
				return Move{}, false
			}
			return Move{Kind: Travel, X: p["X"], Y: p["Y"]}, true
		},
	},
	{
		Name:    "retraction-travel",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			if !p.Has("X", "Y", "E") || !p.Only("X", "Y", "E", "F") || p["E"] > 0 {
				return Move{}, false
			}
			return Move{Kind: RetractionTravel, X: p["X"], Y: p["Y"]}, true
		},
	},
	{
		Name:    "extrude-in-place",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			return Move{Kind: CircleExtrusion}, p.Has("E") && p.Only("E", "F") && p["E"] > 0
		},
	},
	{
		Name:    "retraction",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			return Move{Kind: Skip}, p.Has("E") && p.Only("E", "F") && p["E"] <= 0
		},
	},
	{
		Name:    "z-travel",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			if !p.Has("X", "Y", "Z") || !p.Only("X", "Y", "Z", "E", "F") {
				return Move{}, false
			}
			return Move{Kind: Travel, X: p["X"], Y: p["Y"]}, true
		},
	},
	{
		Name:    "z-only",
		Command: "G1",
		Match: func(p Params) (Move, bool) {
			return Move{Kind: Skip}, p.Has("Z") && p.Only("Z", "F")
		},
	},
}

// motionCommands are the commands for which "no rule matched" is reported as
// Unrecognized instead of being skipped.
var motionCommands = map[string]bool{"G1": true, "G2": true, "G3": true}

// Classify maps one raw line to a Move. Comment, machine-setting and indented
// lines are expected to be filtered out by the caller.
func Classify(text string) Move {
	text = strings.TrimSpace(text)
	block, err := ParseBlock(text)
	if err != nil {
		if hasCommandPrefix(text, PrimaryMotion) {
			return Move{Kind: Unrecognized}
		}
		return Move{Kind: Skip}
	}
	return ClassifyBlock(block)
}

// ClassifyBlock applies the rule table to an already parsed block.
func ClassifyBlock(block *Block) Move {
	cmd := block.Command()
	params := block.Params()
	for _, rule := range Rules {
		if rule.Command != cmd {
			continue
		}
		if mv, ok := rule.Match(params); ok {
			mv.Rule = rule.Name
			return mv
		}
	}
	if motionCommands[cmd] {
		return Move{Kind: Unrecognized}
	}
	return Move{Kind: Skip}
}

// hasCommandPrefix reports whether text starts with cmd as a whole word, so
// "G10" does not count as "G1".
func hasCommandPrefix(text, cmd string) bool {
	if len(text) < len(cmd) || !strings.EqualFold(text[:len(cmd)], cmd) {
		return false
	}
	if len(text) == len(cmd) {
		return true
	}
	next := text[len(cmd)]
	return next < '0' || next > '9'
}
