package cli

import (
	"context"
	"fmt"

	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/pentops/stanfmt/internal/format"
	"github.com/pentops/stanfmt/internal/nvim"
	"github.com/pentops/stanfmt/internal/stanc"
)

func runNvim(ctx context.Context, cfg struct {
	SettingsConfig
	Address string `flag:"address" default:"" description:"Neovim RPC address, defaults to $NVIM or $NVIM_LISTEN_ADDRESS"`
}) error {
	store, err := cfg.Load(ctx)
	if err != nil {
		return err
	}

	session, err := nvim.Dial(ctx, cfg.Address)
	if err != nil {
		return err
	}
	defer session.Close()

	reporter := fmterr.NewReporter(session, session, store)
	formatter := format.NewFormatter(store, &stanc.Runner{}, session, reporter)
	registry := format.NewRegistry()
	registry.Register(ctx, formatter, format.StanSelectors...)
	defer registry.Close()

	count, err := nvim.NewBridge(session, registry).FormatCurrent(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d edits\n", count)
	return nil
}
