package nvim

import (
	"context"
	"fmt"
	"os"

	"github.com/neovim/go-client/nvim"
	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
)

// Session is a connection to a running Neovim.
type Session struct {
	*nvim.Nvim
}

var _ Editor = &Session{}
var _ fmterr.Output = &Session{}
var _ fmterr.Notifier = &Session{}

// Dial connects to address, falling back to $NVIM and then
// $NVIM_LISTEN_ADDRESS.
func Dial(ctx context.Context, address string) (*Session, error) {
	if address == "" {
		address = os.Getenv("NVIM")
	}
	if address == "" {
		address = os.Getenv("NVIM_LISTEN_ADDRESS")
	}
	if address == "" {
		return nil, fmt.Errorf("no Neovim address, pass --address or run inside Neovim")
	}

	log.WithField(ctx, "address", address).Debug("Connecting to Neovim")
	v, err := nvim.Dial(address, nvim.DialContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connecting to Neovim at %s: %w", address, err)
	}
	return &Session{Nvim: v}, nil
}

func (s *Session) ReplaceLines(buffer nvim.Buffer, replacements []LineReplacement) error {
	batch := s.NewBatch()
	for _, r := range replacements {
		batch.SetBufferLines(buffer, r.Start, r.End, true, r.Lines)
	}
	return batch.Execute()
}

func (s *Session) AppendLine(ctx context.Context, line string) {
	if err := s.WriteOut(line + "\n"); err != nil {
		log.WithError(ctx, err).Warn(line)
	}
}

// Show and Clear have nothing to act on: lines go to the message history,
// which :messages shows.
func (s *Session) Show(context.Context)  {}
func (s *Session) Clear(context.Context) {}

// ShowError prints the message. Neovim has no non-blocking prompt, so no
// action is ever chosen.
func (s *Session) ShowError(_ context.Context, message string, _ ...string) (string, error) {
	if err := s.WritelnErr(message); err != nil {
		return "", err
	}
	return "", nil
}

func (s *Session) OpenURL(_ context.Context, url string) error {
	return s.WriteOut(fmt.Sprintf("Report the problem at %s\n", url))
}

func (s *Session) OpenSettings(_ context.Context, query string) error {
	return s.WriteOut(fmt.Sprintf("Configure %q in the stanfmt config file\n", query))
}
