package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pentops/runner/commander"
	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/pentops/stanfmt/internal/format"
	"github.com/pentops/stanfmt/internal/settings"
	"github.com/pentops/stanfmt/internal/stanc"
)

var Version = ""

var Commit = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "dev"
}()

func CommandSet() *commander.CommandSet {

	cmdGroup := commander.NewCommandSet()
	cmdGroup.Add("version", commander.NewCommand(runVersion))

	cmdGroup.Add("format", commander.NewCommand(runFormat))
	cmdGroup.Add("config", commander.NewCommand(runConfig))

	cmdGroup.Add("lsp", commander.NewCommand(runLSP))
	cmdGroup.Add("nvim", commander.NewCommand(runNvim))

	return cmdGroup
}

func runVersion(ctx context.Context, cfg struct{}) error {
	fmt.Printf("stanfmt version %v (%v)\n", Version, Commit)
	return nil
}

// SettingsConfig loads settings from an optional YAML file, then applies
// flag overrides. Overrides are never written back to the file.
type SettingsConfig struct {
	Config         string `flag:"config" default:"" description:"YAML settings file"`
	StancPath      string `flag:"stanc-path" default:"" description:"Path to the stanc3 executable"`
	LineLength     string `flag:"line-length" default:"" description:"Maximum line length of formatted output"`
	AllowUndefined string `flag:"allow-undefined" default:"" description:"Pass --allow-undefined to stanc (true/false)"`
	Timeout        string `flag:"timeout" default:"" description:"Formatting timeout, e.g. 30s"`
}

func (cfg SettingsConfig) Load(ctx context.Context) (*settings.MemoryStore, error) {
	base := settings.Settings{}
	if cfg.Config != "" {
		loaded, err := settings.NewFileStore(cfg.Config).Get(ctx)
		if err != nil {
			return nil, err
		}
		base = loaded
	}

	store := settings.NewMemoryStore(base)
	overrides := map[string]interface{}{}
	for key, value := range map[string]string{
		"stancPath":      cfg.StancPath,
		"lineLength":     cfg.LineLength,
		"allowUndefined": cfg.AllowUndefined,
		"timeout":        cfg.Timeout,
	} {
		if value != "" {
			overrides[key] = value
		}
	}
	if err := store.Merge(ctx, overrides); err != nil {
		return nil, err
	}
	return store, nil
}

// formatterSet is a formatter wired for terminal use.
type formatterSet struct {
	store     *settings.MemoryStore
	formatter *format.Formatter
	registry  *format.Registry
}

func newFormatterSet(ctx context.Context, store *settings.MemoryStore) *formatterSet {
	output := fmterr.NewWriterOutput(os.Stderr)
	reporter := fmterr.NewReporter(output, &terminalNotifier{out: os.Stderr}, store)

	formatter := format.NewFormatter(store, &stanc.Runner{}, output, reporter)
	registry := format.NewRegistry()
	registry.Register(ctx, formatter, format.StanSelectors...)

	return &formatterSet{
		store:     store,
		formatter: formatter,
		registry:  registry,
	}
}

func (fs *formatterSet) Close() error {
	return fs.registry.Close()
}

// putFile replaces the content of filename, keeping its permissions.
func putFile(filename string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(filename); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(filename, data, mode)
}
