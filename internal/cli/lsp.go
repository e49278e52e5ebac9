package cli

import (
	"context"

	"github.com/pentops/stanfmt/internal/lsp"
)

func runLSP(ctx context.Context, cfg struct {
	SettingsConfig
}) error {
	store, err := cfg.Load(ctx)
	if err != nil {
		return err
	}
	initial, err := store.Get(ctx)
	if err != nil {
		return err
	}

	return lsp.RunLSP(ctx, lsp.Config{
		Settings: initial,
		Version:  Version,
	})
}
