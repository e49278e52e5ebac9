package textdiff

import (
	"fmt"
	"strings"
)

// String renders the patch in unified diff form. An empty patch renders as
// an empty string.
func (p *Patch) String() string {
	if p == nil || len(p.Hunks) == 0 {
		return ""
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "--- %s\n", p.OldName)
	fmt.Fprintf(sb, "+++ %s\n", p.NewName)
	for _, hunk := range p.Hunks {
		hunk.writeUnified(sb)
	}
	return sb.String()
}

func (h Hunk) String() string {
	sb := &strings.Builder{}
	h.writeUnified(sb)
	return sb.String()
}

func (h Hunk) writeUnified(sb *strings.Builder) {
	fmt.Fprintf(sb, "@@ -%s +%s @@\n", unifiedRange(h.OldStart, h.OldLines), unifiedRange(h.NewStart, h.NewLines))
	for _, line := range h.Lines {
		sb.WriteByte(byte(line.Op))
		sb.WriteString(line.Content)
		if line.NoEOL {
			sb.WriteString("\n\\ No newline at end of file\n")
			continue
		}
		sb.WriteString(line.Delimiter)
	}
}

// unifiedRange follows the unified convention where an empty range begins
// at the line before it.
func unifiedRange(start, length int) string {
	if length == 1 {
		return fmt.Sprintf("%d", start)
	}
	if length == 0 {
		start--
	}
	return fmt.Sprintf("%d,%d", start, length)
}
