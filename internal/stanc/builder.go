package stanc

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/pentops/stanfmt/internal/settings"
	"golang.org/x/mod/semver"
)

const (
	invalidPathMessage = `The stanc3 path set in the "` + settings.Section + `.stancPath" setting is invalid.`
	notFoundMessage    = `stanc cannot be found in the global environment, please set a path in settings under "` + settings.Section + `.stancPath"`
)

// Executable is a stanc binary which answered a version probe.
type Executable struct {
	Path string
	// Version is the canonical semantic version, empty when the probe output
	// did not contain one.
	Version string
}

type Builder struct {
	exec   Exec
	output fmterr.Output
}

func NewBuilder(exec Exec, output fmterr.Output) *Builder {
	return &Builder{
		exec:   exec,
		output: output,
	}
}

// Resolve probes the configured executable, or stanc on the PATH when no
// other path is configured.
func (b *Builder) Resolve(ctx context.Context, stancPath string) (*Executable, error) {
	path := DefaultExecutable
	failure := notFoundMessage
	if stancPath != "" && stancPath != DefaultExecutable {
		path = stancPath
		failure = invalidPathMessage
	}

	ctx = log.WithField(ctx, "stancPath", path)
	out, err := b.exec.Run(ctx, path, "--version")
	if err != nil {
		log.WithError(ctx, err).Warn("stanc version probe failed")
		return nil, fmterr.Environment(err, failure)
	}

	exe := &Executable{
		Path:    path,
		Version: parseVersion(out.Stdout),
	}
	log.WithField(ctx, "stancVersion", exe.Version).Debug("Resolved stanc")
	return exe, nil
}

// Build resolves the executable and assembles the command which formats
// filePath, reporting diagnostics against displayName.
func (b *Builder) Build(ctx context.Context, filePath, displayName string, cfg settings.Settings) (Command, error) {
	cfg = cfg.WithDefaults()

	exe, err := b.Resolve(ctx, cfg.StancPath)
	if err != nil {
		return Command{}, err
	}

	cmd := Command{
		Executable:     exe.Path,
		Target:         filePath,
		DisplayName:    displayName,
		LineLength:     cfg.LineLength,
		AllowUndefined: *cfg.AllowUndefined,
	}

	line := cmd.String()
	b.output.AppendLine(ctx, fmt.Sprintf(`Running Stan with args "%s"`, line))
	log.WithFields(ctx, map[string]interface{}{
		"cmd":     line,
		"version": exe.Version,
	}).Debug("Built stanc command")

	return cmd, nil
}

var reVersion = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

func parseVersion(probe string) string {
	match := reVersion.FindStringSubmatch(probe)
	if match == nil {
		return ""
	}
	version := semver.Canonical("v" + match[1])
	if !semver.IsValid(version) {
		return ""
	}
	return version
}
