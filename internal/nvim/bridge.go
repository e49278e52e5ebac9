// Package nvim formats the current buffer of a running Neovim.
package nvim

import (
	"context"
	"fmt"
	"strings"

	"github.com/neovim/go-client/nvim"
	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/format"
	"go.lsp.dev/protocol"
)

// Editor is the part of the Neovim API the bridge uses.
type Editor interface {
	CurrentBuffer() (nvim.Buffer, error)
	BufferName(buffer nvim.Buffer) (string, error)
	BufferLines(buffer nvim.Buffer, start, end int, strictIndexing bool) ([][]byte, error)
	BufferOption(buffer nvim.Buffer, name string, result interface{}) error

	// ReplaceLines applies every replacement or none.
	ReplaceLines(buffer nvim.Buffer, replacements []LineReplacement) error
}

// LineReplacement swaps the lines [Start, End) for Lines.
type LineReplacement struct {
	Start int
	End   int
	Lines [][]byte
}

type Bridge struct {
	editor   Editor
	registry *format.Registry
}

func NewBridge(editor Editor, registry *format.Registry) *Bridge {
	return &Bridge{
		editor:   editor,
		registry: registry,
	}
}

// FormatCurrent formats the current buffer in place. It returns the number
// of edits applied.
func (b *Bridge) FormatCurrent(ctx context.Context) (int, error) {
	buf, err := b.editor.CurrentBuffer()
	if err != nil {
		return 0, fmt.Errorf("current buffer: %w", err)
	}

	doc, language, err := b.readBuffer(buf)
	if err != nil {
		return 0, err
	}
	ctx = log.WithFields(ctx, map[string]interface{}{
		"buffer":   int(buf),
		"path":     doc.Path,
		"language": language,
	})

	provider, ok := b.registry.Lookup(language, "file", doc.Path)
	if !ok {
		log.Debug(ctx, "No formatter for buffer")
		return 0, nil
	}

	edits, err := provider.Format(ctx, doc)
	if err != nil {
		return 0, err
	}
	if len(edits) == 0 {
		return 0, nil
	}

	replacements, err := toReplacements(edits)
	if err != nil {
		return 0, err
	}
	if err := b.editor.ReplaceLines(buf, replacements); err != nil {
		return 0, fmt.Errorf("updating buffer: %w", err)
	}
	log.WithField(ctx, "edits", len(edits)).Info("Formatted buffer")
	return len(edits), nil
}

func (b *Bridge) readBuffer(buf nvim.Buffer) (format.Document, string, error) {
	name, err := b.editor.BufferName(buf)
	if err != nil {
		return format.Document{}, "", fmt.Errorf("buffer name: %w", err)
	}
	if name == "" {
		return format.Document{}, "", fmt.Errorf("buffer %d has no file name", buf)
	}

	lines, err := b.editor.BufferLines(buf, 0, -1, true)
	if err != nil {
		return format.Document{}, "", fmt.Errorf("buffer lines: %w", err)
	}

	var modified, eol bool
	var filetype string
	if err := b.editor.BufferOption(buf, "modified", &modified); err != nil {
		return format.Document{}, "", fmt.Errorf("buffer option 'modified': %w", err)
	}
	if err := b.editor.BufferOption(buf, "endofline", &eol); err != nil {
		return format.Document{}, "", fmt.Errorf("buffer option 'endofline': %w", err)
	}
	if err := b.editor.BufferOption(buf, "filetype", &filetype); err != nil {
		return format.Document{}, "", fmt.Errorf("buffer option 'filetype': %w", err)
	}

	return format.Document{
		Path:  name,
		Text:  joinLines(lines, eol),
		Dirty: modified,
	}, filetype, nil
}

func joinLines(lines [][]byte, eol bool) string {
	sb := strings.Builder{}
	for idx, line := range lines {
		if idx > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(line)
	}
	if eol && len(lines) > 0 {
		sb.WriteByte('\n')
	}
	return sb.String()
}

// toReplacements converts whole-line edits, sorted and non-overlapping, to
// buffer replacements in reverse order so earlier line numbers stay valid.
func toReplacements(edits []protocol.TextEdit) ([]LineReplacement, error) {
	replacements := make([]LineReplacement, 0, len(edits))
	for idx := len(edits) - 1; idx >= 0; idx-- {
		edit := edits[idx]
		if edit.Range.Start.Character != 0 || edit.Range.End.Character != 0 {
			return nil, fmt.Errorf("edit %d does not cover whole lines", idx)
		}
		replacements = append(replacements, LineReplacement{
			Start: int(edit.Range.Start.Line),
			End:   int(edit.Range.End.Line),
			Lines: splitLines(edit.NewText),
		})
	}
	return replacements, nil
}

func splitLines(text string) [][]byte {
	if text == "" {
		return [][]byte{}
	}
	parts := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([][]byte, len(parts))
	for idx, part := range parts {
		lines[idx] = []byte(strings.TrimSuffix(part, "\r"))
	}
	return lines
}
