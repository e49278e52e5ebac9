// Package format runs the external formatter against a document and turns
// its output into edits.
package format

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/pentops/stanfmt/internal/settings"
	"github.com/pentops/stanfmt/internal/stanc"
	"github.com/pentops/stanfmt/internal/tempfile"
	"github.com/pentops/stanfmt/internal/textdiff"
	"github.com/pentops/stanfmt/internal/textedit"
	"go.lsp.dev/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Document is the editor's view of a file.
type Document struct {
	Path string
	Text string
	// Dirty is set when Text differs from the content on disk.
	Dirty bool
}

// Provider formats documents.
type Provider interface {
	Format(ctx context.Context, doc Document) ([]protocol.TextEdit, error)
}

type Formatter struct {
	settings settings.Store
	temp     *tempfile.Manager
	builder  *stanc.Builder
	exec     stanc.Exec
	reporter *fmterr.Reporter
	tracer   trace.Tracer
}

var _ Provider = &Formatter{}

type FormatterOption func(*Formatter)

func WithTracerProvider(tp trace.TracerProvider) FormatterOption {
	return func(f *Formatter) {
		f.tracer = tp.Tracer("github.com/pentops/stanfmt/internal/format")
	}
}

// NewFormatter wires a Formatter. Failures are reported through reporter.
func NewFormatter(store settings.Store, exec stanc.Exec, output fmterr.Output, reporter *fmterr.Reporter, opts ...FormatterOption) *Formatter {
	ff := &Formatter{
		settings: store,
		temp:     tempfile.NewManager(output),
		builder:  stanc.NewBuilder(exec, output),
		exec:     exec,
		reporter: reporter,
		tracer:   noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(ff)
	}
	return ff
}

// Format returns the edits which turn the document into its formatted form.
// A disabled formatter returns no edits. On failure no edits are returned
// and the user has been notified.
func (ff *Formatter) Format(ctx context.Context, doc Document) ([]protocol.TextEdit, error) {
	patch, err := ff.Diff(ctx, doc)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		return []protocol.TextEdit{}, nil
	}
	return textedit.FromHunks(patch.Hunks), nil
}

// Diff is Format without the edit translation. It returns a nil patch when
// formatting is disabled.
func (ff *Formatter) Diff(ctx context.Context, doc Document) (*textdiff.Patch, error) {
	cfg, err := ff.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		log.Debug(ctx, "Formatting disabled")
		return nil, nil
	}
	cfg = cfg.WithDefaults()

	ctx = log.WithFields(ctx, map[string]interface{}{
		"requestID": uuid.NewString(),
		"document":  doc.Path,
	})
	ctx, span := ff.tracer.Start(ctx, "format.Diff", trace.WithAttributes(
		attribute.String("document.path", doc.Path),
		attribute.Bool("document.dirty", doc.Dirty),
	))
	defer span.End()

	patch, err := ff.formatFile(ctx, cfg, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ff.reporter.Report(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("patch.hunks", len(patch.Hunks)))
	log.WithField(ctx, "hunks", len(patch.Hunks)).Debug("Formatted document")
	return patch, nil
}

func (ff *Formatter) formatFile(ctx context.Context, cfg settings.Settings, doc Document) (patch *textdiff.Patch, err error) {
	unlock := ff.temp.Lock(doc.Path)
	defer unlock()

	target, err := ff.temp.Acquire(ctx, doc.Path, doc.Text, doc.Dirty)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := ff.temp.Release(ctx, doc.Path, target); releaseErr != nil {
			log.WithError(ctx, releaseErr).Error("Failed to remove temporary file")
			err = errors.Join(err, releaseErr)
			patch = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout.Duration())
	defer cancel()

	cmd, err := ff.builder.Build(ctx, target, doc.Path, cfg)
	if err != nil {
		return nil, err
	}

	out, err := ff.exec.Run(ctx, cmd.Executable, cmd.Args()...)
	if err != nil {
		stdout, stderr := "", ""
		if out != nil {
			stdout, stderr = out.Stdout, out.Stderr
		}
		return nil, fmterr.Formatter(err, stdout, stderr)
	}
	if out.Stderr != "" {
		log.WithField(ctx, "stderr", out.Stderr).Warn("stanc wrote to stderr")
	}

	formatted := MatchLineEndings(doc.Text, out.Stdout)
	return textdiff.Compute(doc.Text, formatted, textdiff.WithNames("a/"+doc.Path, "b/"+doc.Path)), nil
}

// Close waits for outstanding notifications.
func (ff *Formatter) Close() error {
	ff.reporter.Wait()
	return nil
}
