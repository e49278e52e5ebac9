// Package lsp serves document formatting over the Language Server Protocol.
package lsp

import (
	"context"
	"errors"
	"os"

	"github.com/pentops/log.go/log"
)

func RunLSP(ctx context.Context, cfg Config) error {
	ctx = log.WithField(ctx, "serverVersion", cfg.Version)
	log.Info(ctx, "Starting LSP server")

	ss := NewServerStream(ctx, cfg)
	return ss.Run(ctx, stdrwc{})
}

// stdrwc is the client connection over the process's standard streams.
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}
