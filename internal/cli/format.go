package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/pentops/stanfmt/internal/format"
	"github.com/pentops/stanfmt/internal/textdiff"
	"github.com/pentops/stanfmt/internal/textedit"
	"golang.org/x/sync/errgroup"
)

type formatConfig struct {
	SettingsConfig
	File          []string `flag:"file" default:"" description:"Files to format, comma separated"`
	Dir           string   `flag:"dir" default:"" description:"Format every Stan file below this directory"`
	StdinFilename string   `flag:"stdin-filename" default:"" description:"Read the document from stdin, formatting it as this file"`
	Write         bool     `flag:"write" default:"false" description:"Write formatted files in place"`
	Diff          bool     `flag:"diff" default:"false" description:"Print a unified diff instead of the formatted text"`
}

type formatResult struct {
	path      string
	original  string
	formatted string
	err       error
}

func (fr formatResult) changed() bool {
	return fr.err == nil && fr.original != fr.formatted
}

func (fr formatResult) patch() *textdiff.Patch {
	return textdiff.Compute(fr.original, fr.formatted,
		textdiff.WithContext(3),
		textdiff.WithNames("a/"+fr.path, "b/"+fr.path),
	)
}

// printSource shows the source around the positions of a user error.
func (fr formatResult) printSource(w io.Writer) {
	var fe *fmterr.Error
	if !errors.As(fr.err, &fe) || !fe.Kind.IsUserError() {
		return
	}
	fmt.Fprintf(w, "%s\n%s", fr.path, fe.HumanString(fr.original, 2))
}

func runFormat(ctx context.Context, cfg formatConfig) error {
	return formatMain(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
}

func formatMain(ctx context.Context, cfg formatConfig, stdin io.Reader, stdout, stderr io.Writer) error {
	store, err := cfg.Load(ctx)
	if err != nil {
		return err
	}
	set := newFormatterSet(ctx, store)
	defer set.Close()

	if cfg.StdinFilename != "" {
		if cfg.Write {
			return fmt.Errorf("cannot write when reading from stdin")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		res := set.formatDocument(ctx, cfg.StdinFilename, string(data), true)
		if res.err != nil {
			res.printSource(stderr)
			return res.err
		}
		if cfg.Diff {
			_, err = io.WriteString(stdout, res.patch().String())
			return err
		}
		_, err = io.WriteString(stdout, res.formatted)
		return err
	}

	files, err := cfg.collectFiles(set.registry)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to format, pass --file, --dir or --stdin-filename")
	}

	results := make([]formatResult, len(files))
	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.SetLimit(runtime.NumCPU())
	for idx, pathname := range files {
		errGroup.Go(func() error {
			results[idx] = set.formatFile(ctx, pathname)
			return nil
		})
	}
	if err := errGroup.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.err != nil {
			res.printSource(stderr)
			failed++
			continue
		}
		switch {
		case cfg.Write:
			if !res.changed() {
				continue
			}
			if err := putFile(res.path, []byte(res.formatted)); err != nil {
				return fmt.Errorf("writing %s: %w", res.path, err)
			}
			log.WithField(ctx, "file", res.path).Info("Formatted")

		case cfg.Diff:
			if _, err := io.WriteString(stdout, res.patch().String()); err != nil {
				return err
			}

		default:
			if len(results) > 1 {
				fmt.Fprintf(stdout, "Formatted: %s\n", res.path)
			}
			if _, err := io.WriteString(stdout, res.formatted); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("formatting failed for %d of %d files", failed, len(results))
	}
	return nil
}

func (cfg formatConfig) collectFiles(registry *format.Registry) ([]string, error) {
	files := make([]string, 0, len(cfg.File))
	for _, file := range cfg.File {
		if file = strings.TrimSpace(file); file != "" {
			files = append(files, file)
		}
	}
	if cfg.Dir == "" {
		return files, nil
	}

	err := fs.WalkDir(os.DirFS(cfg.Dir), ".", func(pathname string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		full := filepath.Join(cfg.Dir, filepath.FromSlash(pathname))
		if _, ok := registry.Lookup("", "file", full); ok {
			files = append(files, full)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.Dir, err)
	}
	return files, nil
}

func (set *formatterSet) formatFile(ctx context.Context, pathname string) formatResult {
	data, err := os.ReadFile(pathname)
	if err != nil {
		return formatResult{path: pathname, err: fmt.Errorf("reading %s: %w", pathname, err)}
	}
	return set.formatDocument(ctx, pathname, string(data), false)
}

func (set *formatterSet) formatDocument(ctx context.Context, pathname, text string, dirty bool) formatResult {
	res := formatResult{
		path:      pathname,
		original:  text,
		formatted: text,
	}

	abs, err := filepath.Abs(pathname)
	if err != nil {
		res.err = err
		return res
	}

	provider, ok := set.registry.Lookup("", "file", abs)
	if !ok {
		res.err = fmt.Errorf("%s is not a Stan file", pathname)
		return res
	}

	edits, err := provider.Format(ctx, format.Document{
		Path:  abs,
		Text:  text,
		Dirty: dirty,
	})
	if err != nil {
		res.err = err
		return res
	}

	res.formatted, res.err = textedit.Apply(text, edits)
	return res
}
