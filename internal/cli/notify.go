package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pentops/stanfmt/internal/fmterr"
	"golang.org/x/exp/slices"
)

// terminalNotifier prints notifications. It follows the actions which only
// print more detail and never changes settings.
type terminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

var _ fmterr.Notifier = &terminalNotifier{}

func (tn *terminalNotifier) ShowError(_ context.Context, message string, actions ...string) (string, error) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	if _, err := fmt.Fprintf(tn.out, "error: %s\n", message); err != nil {
		return "", err
	}
	for _, action := range []string{fmterr.ActionBugReport, fmterr.ActionOpenSettings} {
		if slices.Contains(actions, action) {
			return action, nil
		}
	}
	return "", nil
}

func (tn *terminalNotifier) OpenURL(_ context.Context, url string) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	_, err := fmt.Fprintf(tn.out, "Please report this at %s\n", url)
	return err
}

func (tn *terminalNotifier) OpenSettings(_ context.Context, query string) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	_, err := fmt.Fprintf(tn.out, "Settings for %q can be passed as flags or in a --config file\n", query)
	return err
}
