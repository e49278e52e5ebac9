package nvim

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neovim/go-client/nvim"
	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/format"
	"github.com/pentops/stanfmt/internal/textedit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

type fakeEditor struct {
	name     string
	lines    [][]byte
	options  map[string]interface{}
	failWith error

	applied [][]LineReplacement
}

func (fe *fakeEditor) CurrentBuffer() (nvim.Buffer, error) {
	return nvim.Buffer(1), nil
}

func (fe *fakeEditor) BufferName(nvim.Buffer) (string, error) {
	return fe.name, nil
}

func (fe *fakeEditor) BufferLines(_ nvim.Buffer, start, end int, _ bool) ([][]byte, error) {
	if end < 0 {
		end = len(fe.lines)
	}
	return fe.lines[start:end], nil
}

func (fe *fakeEditor) BufferOption(_ nvim.Buffer, name string, result interface{}) error {
	val, ok := fe.options[name]
	if !ok {
		return fmt.Errorf("unknown option %s", name)
	}
	switch r := result.(type) {
	case *bool:
		*r = val.(bool)
	case *string:
		*r = val.(string)
	default:
		return fmt.Errorf("unexpected result type %T", result)
	}
	return nil
}

func (fe *fakeEditor) ReplaceLines(_ nvim.Buffer, replacements []LineReplacement) error {
	if fe.failWith != nil {
		return fe.failWith
	}
	fe.applied = append(fe.applied, replacements)
	for _, r := range replacements {
		next := append([][]byte{}, fe.lines[:r.Start]...)
		next = append(next, r.Lines...)
		next = append(next, fe.lines[r.End:]...)
		fe.lines = next
	}
	return nil
}

func (fe *fakeEditor) text() []string {
	out := make([]string, len(fe.lines))
	for idx, line := range fe.lines {
		out[idx] = string(line)
	}
	return out
}

// textProvider formats by applying fn to the whole document.
type textProvider struct {
	fn  func(string) string
	got []format.Document
}

func (tp *textProvider) Format(_ context.Context, doc format.Document) ([]protocol.TextEdit, error) {
	tp.got = append(tp.got, doc)
	out := tp.fn(doc.Text)
	if out == doc.Text {
		return []protocol.TextEdit{}, nil
	}
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 1, Character: 0},
			End:   protocol.Position{Line: 3, Character: 0},
		},
		NewText: "X\n",
	}, {
		Range: protocol.Range{
			Start: protocol.Position{Line: 4, Character: 0},
			End:   protocol.Position{Line: 4, Character: 0},
		},
		NewText: "Y\nZ\n",
	}}, nil
}

func lines(text ...string) [][]byte {
	out := make([][]byte, len(text))
	for idx, line := range text {
		out[idx] = []byte(line)
	}
	return out
}

func newBridge(t *testing.T, editor Editor, provider format.Provider) *Bridge {
	t.Helper()
	log.DefaultLogger = log.NewTestLogger(t)
	registry := format.NewRegistry()
	registry.Register(context.Background(), provider, format.StanSelectors...)
	return NewBridge(editor, registry)
}

func TestFormatCurrent(t *testing.T) {
	editor := &fakeEditor{
		name:  "/work/model.stan",
		lines: lines("a", "b", "c", "d", "e"),
		options: map[string]interface{}{
			"modified":  true,
			"endofline": true,
			"filetype":  "stan",
		},
	}
	provider := &textProvider{fn: func(s string) string { return s + "!" }}
	bridge := newBridge(t, editor, provider)

	count, err := bridge.FormatCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, provider.got, 1)
	assert.Equal(t, format.Document{
		Path:  "/work/model.stan",
		Text:  "a\nb\nc\nd\ne\n",
		Dirty: true,
	}, provider.got[0])

	require.Len(t, editor.applied, 1)
	assert.Equal(t, 4, editor.applied[0][0].Start, "later edits apply first")
	if diff := cmp.Diff([]string{"a", "X", "d", "Y", "Z", "e"}, editor.text()); diff != "" {
		t.Errorf("buffer (-want +got):\n%s", diff)
	}
}

func TestFormatCurrentMatchesApply(t *testing.T) {
	editor := &fakeEditor{
		name:  "/work/model.stan",
		lines: lines("a", "b", "c", "d", "e"),
		options: map[string]interface{}{
			"modified":  false,
			"endofline": true,
			"filetype":  "",
		},
	}
	provider := &textProvider{fn: func(s string) string { return s + "!" }}
	bridge := newBridge(t, editor, provider)

	edits, err := provider.Format(context.Background(), format.Document{Text: "a\nb\nc\nd\ne\n"})
	require.NoError(t, err)
	want, err := textedit.Apply("a\nb\nc\nd\ne\n", edits)
	require.NoError(t, err)

	_, err = bridge.FormatCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, joinLines(editor.lines, true))
}

func TestFormatCurrentSkips(t *testing.T) {
	t.Run("unchanged", func(t *testing.T) {
		editor := &fakeEditor{
			name:  "/work/model.stan",
			lines: lines("a"),
			options: map[string]interface{}{
				"modified":  false,
				"endofline": true,
				"filetype":  "stan",
			},
		}
		bridge := newBridge(t, editor, &textProvider{fn: func(s string) string { return s }})
		count, err := bridge.FormatCurrent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Empty(t, editor.applied)
	})

	t.Run("other language", func(t *testing.T) {
		editor := &fakeEditor{
			name:  "/work/main.go",
			lines: lines("package main"),
			options: map[string]interface{}{
				"modified":  false,
				"endofline": true,
				"filetype":  "go",
			},
		}
		provider := &textProvider{fn: func(s string) string { return s + "!" }}
		bridge := newBridge(t, editor, provider)
		count, err := bridge.FormatCurrent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Empty(t, provider.got)
	})

	t.Run("no name", func(t *testing.T) {
		editor := &fakeEditor{options: map[string]interface{}{}}
		bridge := newBridge(t, editor, &textProvider{fn: func(s string) string { return s }})
		_, err := bridge.FormatCurrent(context.Background())
		assert.Error(t, err)
	})
}

func TestFormatCurrentApplyFails(t *testing.T) {
	editor := &fakeEditor{
		name:  "/work/model.stan",
		lines: lines("a", "b", "c", "d", "e"),
		options: map[string]interface{}{
			"modified":  true,
			"endofline": true,
			"filetype":  "stan",
		},
		failWith: errors.New("buffer is locked"),
	}
	bridge := newBridge(t, editor, &textProvider{fn: func(s string) string { return s + "!" }})
	_, err := bridge.FormatCurrent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer is locked")
}

func TestToReplacements(t *testing.T) {
	_, err := toReplacements([]protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 2},
			End:   protocol.Position{Line: 1, Character: 0},
		},
	}})
	assert.Error(t, err)

	got, err := toReplacements([]protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0},
			End:   protocol.Position{Line: 1},
		},
		NewText: "",
	}, {
		Range: protocol.Range{
			Start: protocol.Position{Line: 2},
			End:   protocol.Position{Line: 2},
		},
		NewText: "\n",
	}})
	require.NoError(t, err)
	assert.Equal(t, []LineReplacement{
		{Start: 2, End: 2, Lines: [][]byte{{}}},
		{Start: 0, End: 1, Lines: [][]byte{}},
	}, got)
}

func TestJoinLines(t *testing.T) {
	assert.Equal(t, "a\nb\n", joinLines(lines("a", "b"), true))
	assert.Equal(t, "a\nb", joinLines(lines("a", "b"), false))
	assert.Equal(t, "", joinLines(nil, true))
}
