package lsp

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/format"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// fileSet tracks the documents the client has open.
type fileSet struct {
	files map[protocol.DocumentURI]*protocol.TextDocumentItem

	onChange func(context.Context, protocol.DocumentURI)
}

func newFileSet() *fileSet {
	return &fileSet{
		files: make(map[protocol.DocumentURI]*protocol.TextDocumentItem),
	}
}

type openDocument struct {
	format.Document
	URI        protocol.DocumentURI
	Scheme     string
	LanguageID string
	Version    int32
}

func (fs *fileSet) getDocument(_ context.Context, docID protocol.TextDocumentIdentifier) (*openDocument, error) {
	item, ok := fs.files[docID.URI]
	if !ok {
		return nil, fmt.Errorf("document not open: %v", docID.URI)
	}

	scheme, path, err := splitURI(item.URI)
	if err != nil {
		return nil, err
	}

	return &openDocument{
		Document: format.Document{
			Path:  path,
			Text:  item.Text,
			Dirty: isDirty(scheme, path, item.Text),
		},
		URI:        item.URI,
		Scheme:     scheme,
		LanguageID: string(item.LanguageID),
		Version:    item.Version,
	}, nil
}

// splitURI returns the scheme and, for file URIs, the local path.
func splitURI(docURI protocol.DocumentURI) (string, string, error) {
	parsed, err := url.Parse(string(docURI))
	if err != nil {
		return "", "", fmt.Errorf("invalid document URI %q: %w", docURI, err)
	}
	if parsed.Scheme != uri.FileScheme {
		return parsed.Scheme, parsed.Opaque + parsed.Path, nil
	}
	return parsed.Scheme, uri.URI(docURI).Filename(), nil
}

// isDirty compares the editor's text with the file on disk. Documents which
// cannot be read from disk are always dirty.
func isDirty(scheme, path, text string) bool {
	if scheme != uri.FileScheme {
		return true
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	return !bytes.Equal(onDisk, []byte(text))
}

func (fs *fileSet) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	ctx = log.WithField(ctx, "fileURI", params.TextDocument.URI)
	log.WithFields(ctx, map[string]interface{}{
		"version":  params.TextDocument.Version,
		"language": params.TextDocument.LanguageID,
		"textLen":  len(params.TextDocument.Text),
	}).Debug("DidOpen")

	item := params.TextDocument
	fs.files[item.URI] = &item
	return nil
}

func (fs *fileSet) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	ctx = log.WithField(ctx, "fileURI", params.TextDocument.URI)
	log.WithFields(ctx, map[string]interface{}{
		"version": params.TextDocument.Version,
		"changes": len(params.ContentChanges),
	}).Debug("DidChange")

	file, ok := fs.files[params.TextDocument.URI]
	if !ok {
		return fmt.Errorf("document not open: %v", params.TextDocument.URI)
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// full sync: the last change holds the whole document
	file.Text = params.ContentChanges[len(params.ContentChanges)-1].Text
	file.Version = params.TextDocument.Version

	if fs.onChange != nil {
		fs.onChange(ctx, file.URI)
	}
	return nil
}

func (fs *fileSet) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	ctx = log.WithField(ctx, "fileURI", params.TextDocument.URI)
	log.Debug(ctx, "DidClose")
	delete(fs.files, params.TextDocument.URI)
	return nil
}

func (fs *fileSet) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	ctx = log.WithField(ctx, "fileURI", params.TextDocument.URI)
	log.WithField(ctx, "textLen", len(params.Text)).Debug("DidSave")

	if file, ok := fs.files[params.TextDocument.URI]; ok && params.Text != "" {
		file.Text = params.Text
	}
	return nil
}
