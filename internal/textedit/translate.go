// Package textedit turns patches into editor text edits and applies edits to
// plain text.
package textedit

import (
	"strings"

	"github.com/pentops/stanfmt/internal/textdiff"
	"go.lsp.dev/protocol"
)

// FromHunks returns one whole-line edit per hunk, in hunk order. Ranges are
// in the coordinates of the text the patch was computed from, so the edits
// are disjoint and may be applied as a single batch.
func FromHunks(hunks []textdiff.Hunk) []protocol.TextEdit {
	edits := make([]protocol.TextEdit, 0, len(hunks))
	for _, hunk := range hunks {
		edits = append(edits, FromHunk(hunk))
	}
	return edits
}

// FromHunk replaces lines [OldStart-1, OldStart-1+OldLines) with the hunk's
// context and added lines.
func FromHunk(hunk textdiff.Hunk) protocol.TextEdit {
	start := hunk.OldStart - 1
	if start < 0 {
		start = 0
	}
	end := start + hunk.OldLines

	sb := &strings.Builder{}
	for _, line := range hunk.Lines {
		if line.Op == textdiff.OpRemove {
			continue
		}
		sb.WriteString(line.Content)
		switch {
		case line.Delimiter != "":
			sb.WriteString(line.Delimiter)
		case !line.NoEOL:
			sb.WriteString("\n")
		}
	}

	return protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(start)},
			End:   protocol.Position{Line: uint32(end)},
		},
		NewText: sb.String(),
	}
}
