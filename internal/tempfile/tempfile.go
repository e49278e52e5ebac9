// Package tempfile makes unsaved document content readable by an external
// process by writing it next to the original file.
package tempfile

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
)

// Path returns the temp file path for a document:
// <path>.<md5 hex of path><ext>, in the same directory as the document so
// relative includes still resolve.
func Path(documentPath string) string {
	sum := md5.Sum([]byte(documentPath))
	return documentPath + "." + hex.EncodeToString(sum[:]) + filepath.Ext(documentPath)
}

type Manager struct {
	output fmterr.Output

	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(output fmterr.Output) *Manager {
	return &Manager{
		output: output,
		locks:  map[string]*pathLock{},
	}
}

// Lock serializes operations on a document path. The returned func
// releases the lock.
func (m *Manager) Lock(documentPath string) func() {
	m.mu.Lock()
	lock, ok := m.locks[documentPath]
	if !ok {
		lock = &pathLock{}
		m.locks[documentPath] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, documentPath)
		}
		m.mu.Unlock()
	}
}

// Acquire returns a path holding the document's current text. Saved
// documents are read from their own path.
func (m *Manager) Acquire(ctx context.Context, documentPath string, text string, dirty bool) (string, error) {
	if !dirty {
		return documentPath, nil
	}

	tmp := Path(documentPath)
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return "", fmterr.IO(err, "Failed to write temporary file %q", tmp)
	}

	log.WithField(ctx, "tempFile", tmp).Debug("Wrote temporary file")
	return tmp, nil
}

// Release removes usedPath when it is a temp file. A temp file which no
// longer exists is an error.
func (m *Manager) Release(ctx context.Context, documentPath string, usedPath string) error {
	if usedPath == "" || usedPath == documentPath {
		return nil
	}

	if err := os.Remove(usedPath); err != nil {
		return fmterr.IO(err, "Failed to delete temporary file %q", usedPath)
	}

	m.output.AppendLine(ctx, fmt.Sprintf(`Temporary file "%s" was deleted`, usedPath))
	return nil
}
