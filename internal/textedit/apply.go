package textedit

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Apply applies edits to text. Edits must be ordered by start position and
// must not overlap. Characters are counted in UTF-16 code units. Lines end
// at "\n", so a "\r\n" delimiter belongs to the line it terminates.
func Apply(text string, edits []protocol.TextEdit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}

	idx := newLineIndex(text)
	sb := &strings.Builder{}
	sb.Grow(len(text))

	last := 0
	for editIdx, edit := range edits {
		start, err := idx.offset(edit.Range.Start)
		if err != nil {
			return "", fmt.Errorf("edit %d start: %w", editIdx, err)
		}
		end, err := idx.offset(edit.Range.End)
		if err != nil {
			return "", fmt.Errorf("edit %d end: %w", editIdx, err)
		}
		if end < start {
			return "", fmt.Errorf("edit %d: range end %s is before start %s", editIdx, formatPosition(edit.Range.End), formatPosition(edit.Range.Start))
		}
		if start < last {
			return "", fmt.Errorf("edit %d: overlaps or precedes the previous edit", editIdx)
		}

		sb.WriteString(text[last:start])
		sb.WriteString(edit.NewText)
		last = end
	}
	sb.WriteString(text[last:])

	return sb.String(), nil
}

type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for idx := 0; idx < len(text); idx++ {
		if text[idx] == '\n' {
			starts = append(starts, idx+1)
		}
	}
	return lineIndex{
		text:   text,
		starts: starts,
	}
}

// offset converts a position to a byte offset. A position past the last
// line maps to the end of the text, a character past the end of its line
// maps to the end of that line.
func (li lineIndex) offset(pos protocol.Position) (int, error) {
	line := int(pos.Line)
	if line >= len(li.starts) {
		return len(li.text), nil
	}

	offset := li.starts[line]
	lineEnd := len(li.text)
	if line+1 < len(li.starts) {
		lineEnd = li.starts[line+1] - 1
		if lineEnd > offset && li.text[lineEnd-1] == '\r' {
			lineEnd--
		}
	}

	units := int(pos.Character)
	for units > 0 && offset < lineEnd {
		r, size := utf8.DecodeRuneInString(li.text[offset:])
		width := utf16.RuneLen(r)
		if width < 0 {
			width = 1
		}
		if width > units {
			return 0, fmt.Errorf("position %s splits a surrogate pair", formatPosition(pos))
		}
		units -= width
		offset += size
	}
	return offset, nil
}

func formatPosition(pos protocol.Position) string {
	return fmt.Sprintf("%d:%d", pos.Line, pos.Character)
}
