package lsp

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func TestFileSetLifecycle(t *testing.T) {
	log.DefaultLogger = log.NewTestLogger(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "model.stan")
	require.NoError(t, os.WriteFile(path, []byte("model {}\n"), 0o644))
	docURI := uri.File(path)

	changed := []protocol.DocumentURI{}
	fs := newFileSet()
	fs.onChange = func(_ context.Context, u protocol.DocumentURI) {
		changed = append(changed, u)
	}

	require.NoError(t, fs.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: "stan",
			Version:    1,
			Text:       "model {}\n",
		},
	}))

	doc, err := fs.getDocument(ctx, protocol.TextDocumentIdentifier{URI: docURI})
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "file", doc.Scheme)
	assert.Equal(t, "stan", doc.LanguageID)
	assert.False(t, doc.Dirty)

	require.NoError(t, fs.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: "model { }\n"},
			{Text: "model {  }\n"},
		},
	}))
	assert.Equal(t, []protocol.DocumentURI{docURI}, changed)

	doc, err = fs.getDocument(ctx, protocol.TextDocumentIdentifier{URI: docURI})
	require.NoError(t, err)
	assert.Equal(t, "model {  }\n", doc.Text)
	assert.Equal(t, int32(2), doc.Version)
	assert.True(t, doc.Dirty)

	require.NoError(t, fs.DidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}))
	_, err = fs.getDocument(ctx, protocol.TextDocumentIdentifier{URI: docURI})
	assert.Error(t, err)
}

func TestFileSetChangeUnknown(t *testing.T) {
	log.DefaultLogger = log.NewTestLogger(t)
	fs := newFileSet()
	err := fs.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///nope.stan"},
		},
	})
	assert.Error(t, err)
}

func TestSplitURI(t *testing.T) {
	scheme, path, err := splitURI("untitled:Untitled-1")
	require.NoError(t, err)
	assert.Equal(t, "untitled", scheme)
	assert.Equal(t, "Untitled-1", path)

	scheme, path, err = splitURI(uri.File("/tmp/a b/model.stan"))
	require.NoError(t, err)
	assert.Equal(t, "file", scheme)
	assert.Equal(t, "/tmp/a b/model.stan", path)
}

func TestIsDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stan")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))

	assert.False(t, isDirty("file", path, "a\n"))
	assert.True(t, isDirty("file", path, "b\n"))
	assert.True(t, isDirty("file", path+".missing", "a\n"))
	assert.True(t, isDirty("untitled", "Untitled-1", ""))
}

func TestDebounce(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	done := make(chan string, 4)

	d := newDebounce(20*time.Millisecond, func(_ context.Context, key string) {
		mu.Lock()
		calls[key]++
		mu.Unlock()
		done <- key
	})

	ctx := context.Background()
	d.request(ctx, "a")
	d.request(ctx, "a")
	d.request(ctx, "b")

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case key := <-done:
			got[key] = true
		case <-time.After(2 * time.Second):
			t.Fatal("debounce did not fire")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, calls)
}

func TestDebounceStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := newDebounce(20*time.Millisecond, func(context.Context, string) {
		fired <- struct{}{}
	})
	d.request(context.Background(), "a")
	d.stop()

	select {
	case <-fired:
		t.Fatal("stopped debounce fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDiagnosticsFor(t *testing.T) {
	assert.Nil(t, diagnosticsFor(nil))
	assert.Nil(t, diagnosticsFor(fmterr.Environment(nil, "stanc missing")))

	stderr := "Syntax error in 'model.stan', line 2, column 4 to column 9, parsing error:\n"
	diags := diagnosticsFor(fmterr.Formatter(assert.AnError, "", stderr))
	require.Len(t, diags, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 4},
		End:   protocol.Position{Line: 1, Character: 9},
	}, diags[0].Range)
	assert.Equal(t, protocol.DiagnosticSeverityError, diags[0].Severity)
	assert.Equal(t, "stanc", diags[0].Source)
	assert.Equal(t, stderr, diags[0].Message)
}
