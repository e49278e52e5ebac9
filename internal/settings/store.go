package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pentops/log.go/log"
	"gopkg.in/yaml.v3"
)

// Store reads and writes settings. Get returns settings as stored, without
// defaults.
type Store interface {
	Get(ctx context.Context) (Settings, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// MemoryStore is a Store held in memory, as pushed by an editor.
type MemoryStore struct {
	mu       sync.RWMutex
	settings Settings
}

var _ Store = &MemoryStore{}

func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{settings: initial}
}

func (ms *MemoryStore) Get(context.Context) (Settings, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.settings, nil
}

func (ms *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.settings.Set(key, value); err != nil {
		return err
	}
	log.WithFields(ctx, map[string]interface{}{
		"key":   Key(key),
		"value": value,
	}).Debug("Setting changed")
	return nil
}

// Merge applies every value, stopping at the first invalid one. Values
// applied before the failure are kept.
func (ms *MemoryStore) Merge(ctx context.Context, values map[string]interface{}) error {
	for _, key := range Keys {
		value, ok := values[key]
		if !ok {
			continue
		}
		if err := ms.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// FileStore keeps settings in a YAML file. A missing file reads as empty
// settings.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = &FileStore{}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Get(context.Context) (Settings, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.read()
}

func (fs *FileStore) Set(ctx context.Context, key string, value interface{}) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.read()
	if err != nil {
		return err
	}
	if err := current.Set(key, value); err != nil {
		return err
	}

	data, err := yaml.Marshal(current)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	log.WithFields(ctx, map[string]interface{}{
		"key":  Key(key),
		"file": fs.path,
	}).Info("Setting saved")
	return nil
}

func (fs *FileStore) read() (Settings, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file: %w", err)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return Settings{}, fmt.Errorf("parsing settings file %s: %w", fs.path, err)
	}

	settings := Settings{}
	for key, value := range values {
		if err := settings.Set(key, value); err != nil {
			return Settings{}, fmt.Errorf("settings file %s: %w", fs.path, err)
		}
	}
	return settings, nil
}
