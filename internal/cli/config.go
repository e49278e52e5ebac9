package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pentops/stanfmt/internal/settings"
	"gopkg.in/yaml.v3"
)

type configConfig struct {
	Config string   `flag:"config" description:"YAML settings file"`
	Set    []string `flag:"set" default:"" description:"Settings to save, comma separated key=value pairs"`
}

// runConfig saves settings to the file, then prints the effective settings.
func runConfig(ctx context.Context, cfg configConfig) error {
	return configMain(ctx, cfg, os.Stdout)
}

func configMain(ctx context.Context, cfg configConfig, stdout io.Writer) error {
	store := settings.NewFileStore(cfg.Config)
	for _, pair := range cfg.Set {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("setting %q: expected key=value", pair)
		}
		if err := store.Set(ctx, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}

	current, err := store.Get(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(current.WithDefaults())
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
