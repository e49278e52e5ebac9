// Package textdiff computes line-oriented patches between two texts. Every
// line keeps the delimiter it was read with, so a patch carries enough
// information to rebuild the new text byte for byte.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

type Op byte

const (
	OpContext Op = ' '
	OpAdd     Op = '+'
	OpRemove  Op = '-'
)

func (op Op) String() string {
	switch op {
	case OpContext:
		return "context"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("Op(%d)", byte(op))
	}
}

// Line is one line of a hunk. Content never includes the delimiter.
type Line struct {
	Op        Op
	Content   string
	Delimiter string // "\n", "\r\n" or "" for the final line of a text

	// NoEOL is set on the final line of a text which has no terminator.
	NoEOL bool
}

func (l Line) String() string {
	return string(l.Op) + l.Content
}

// Hunk is a contiguous region of change. OldStart and NewStart are
// 1-indexed. For a pure insertion OldLines is zero and OldStart is the
// line the new lines are inserted before.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

type Patch struct {
	OldName string
	NewName string
	Hunks   []Hunk
}

type options struct {
	context int
	oldName string
	newName string
}

type Option func(*options)

// WithContext includes n unchanged lines around each change. Hunks whose
// context would overlap are merged.
func WithContext(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.context = n
		}
	}
}

// WithNames sets the file names used in the unified header.
func WithNames(oldName, newName string) Option {
	return func(o *options) {
		o.oldName = oldName
		o.newName = newName
	}
}

// Compute diffs original against formatted. Identical texts produce a patch
// with no hunks.
func Compute(original, formatted string, opts ...Option) *Patch {
	cfg := options{
		oldName: "original",
		newName: "formatted",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	patch := &Patch{
		OldName: cfg.oldName,
		NewName: cfg.newName,
	}
	if original == formatted {
		return patch
	}

	oldLines := SplitLines(original)
	newLines := SplitLines(formatted)

	matcher := difflib.NewMatcherWithJunk(lineKeys(oldLines), lineKeys(newLines), false, nil)
	for _, group := range matcher.GetGroupedOpCodes(cfg.context) {
		patch.Hunks = append(patch.Hunks, buildHunk(group, oldLines, newLines))
	}
	return patch
}

func buildHunk(group []difflib.OpCode, oldLines, newLines []Line) Hunk {
	first, last := group[0], group[len(group)-1]
	hunk := Hunk{
		OldStart: first.I1 + 1,
		OldLines: last.I2 - first.I1,
		NewStart: first.J1 + 1,
		NewLines: last.J2 - first.J1,
	}

	for _, code := range group {
		switch code.Tag {
		case 'e':
			hunk.Lines = appendTagged(hunk.Lines, OpContext, oldLines[code.I1:code.I2])
		case 'd':
			hunk.Lines = appendTagged(hunk.Lines, OpRemove, oldLines[code.I1:code.I2])
		case 'i':
			hunk.Lines = appendTagged(hunk.Lines, OpAdd, newLines[code.J1:code.J2])
		case 'r':
			hunk.Lines = appendTagged(hunk.Lines, OpRemove, oldLines[code.I1:code.I2])
			hunk.Lines = appendTagged(hunk.Lines, OpAdd, newLines[code.J1:code.J2])
		}
	}
	return hunk
}

func appendTagged(dst []Line, op Op, src []Line) []Line {
	for _, line := range src {
		line.Op = op
		dst = append(dst, line)
	}
	return dst
}

func lineKeys(lines []Line) []string {
	keys := make([]string, len(lines))
	for idx, line := range lines {
		keys[idx] = line.Content + line.Delimiter
	}
	return keys
}

// SplitLines splits text on "\n" and "\r\n". A lone "\r" is content. The
// returned lines have OpContext.
func SplitLines(text string) []Line {
	lines := make([]Line, 0, strings.Count(text, "\n")+1)
	for len(text) > 0 {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			lines = append(lines, Line{
				Op:      OpContext,
				Content: text,
				NoEOL:   true,
			})
			break
		}

		content := text[:idx]
		delimiter := "\n"
		if strings.HasSuffix(content, "\r") {
			content = content[:len(content)-1]
			delimiter = "\r\n"
		}
		lines = append(lines, Line{
			Op:        OpContext,
			Content:   content,
			Delimiter: delimiter,
		})
		text = text[idx+1:]
	}
	return lines
}
