package format

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"github.com/pentops/log.go/log"
	"github.com/ryanuber/go-glob"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Selector matches documents. Empty fields match anything. Language is
// compared when both the selector and the document name one, otherwise
// Pattern is matched against the base name of the path.
type Selector struct {
	Language string
	Scheme   string
	Pattern  string
}

// StanSelectors match Stan programs and function libraries on disk.
var StanSelectors = []Selector{
	{Language: "stan", Scheme: "file", Pattern: "*.stan"},
	{Language: "stan", Scheme: "file", Pattern: "*.stanfunctions"},
}

func (s Selector) Matches(language, scheme, path string) bool {
	if s.Scheme != "" && scheme != "" && s.Scheme != scheme {
		return false
	}
	if s.Language != "" && language != "" {
		return s.Language == language
	}
	if s.Pattern != "" {
		return glob.Glob(s.Pattern, filepath.Base(path))
	}
	return true
}

// Registry holds the providers which are active. Providers registered
// first win.
type Registry struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]*Registration
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[int]*Registration{},
	}
}

type Registration struct {
	id        int
	registry  *Registry
	selectors []Selector
	provider  Provider
}

// Register activates provider for documents matching any of selectors.
func (r *Registry) Register(ctx context.Context, provider Provider, selectors ...Selector) *Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	reg := &Registration{
		id:        r.nextID,
		registry:  r,
		selectors: selectors,
		provider:  provider,
	}
	r.entries[reg.id] = reg
	log.WithField(ctx, "registration", reg.id).Debug("Registered format provider")
	return reg
}

// Close unregisters the provider, closing it when it is an io.Closer.
// Closing twice is a no-op.
func (reg *Registration) Close() error {
	r := reg.registry
	r.mu.Lock()
	_, ok := r.entries[reg.id]
	delete(r.entries, reg.id)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if closer, ok := reg.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Lookup returns the first registered provider matching the document.
func (r *Registry) Lookup(language, scheme, path string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := maps.Keys(r.entries)
	slices.Sort(ids)
	for _, id := range ids {
		reg := r.entries[id]
		for _, sel := range reg.selectors {
			if sel.Matches(language, scheme, path) {
				return reg.provider, true
			}
		}
	}
	return nil, false
}

// Len returns the number of active registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close unregisters every provider.
func (r *Registry) Close() error {
	r.mu.Lock()
	regs := maps.Values(r.entries)
	r.mu.Unlock()

	slices.SortFunc(regs, func(a, b *Registration) int {
		return a.id - b.id
	})

	var errs []error
	for _, reg := range regs {
		if err := reg.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
