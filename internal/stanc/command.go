// Package stanc resolves, assembles and runs stanc3 invocations.
package stanc

import (
	"fmt"
	"strings"
)

const (
	DefaultExecutable = "stanc"
	DefaultLineLength = 78
)

// Command is one formatter invocation. It is a value, so equal inputs
// compare equal.
type Command struct {
	Executable     string
	Target         string
	DisplayName    string
	LineLength     int
	AllowUndefined bool
}

// Args returns the argument list, excluding the executable.
func (c Command) Args() []string {
	lineLength := c.LineLength
	if lineLength <= 0 {
		lineLength = DefaultLineLength
	}

	args := []string{
		"--auto-format",
		c.Target,
		fmt.Sprintf("--max-line-length=%d", lineLength),
		"--filename-in-msg",
		c.DisplayName,
	}
	if c.AllowUndefined {
		args = append(args, "--allow-undefined")
	}
	return args
}

// Flags returns the flags in order, without their values.
func (c Command) Flags() []string {
	flags := make([]string, 0, 4)
	for _, arg := range c.Args() {
		if strings.HasPrefix(arg, "--") {
			flags = append(flags, arg)
		}
	}
	return flags
}

// String renders the command the way a shell user would type it, with the
// two paths quoted.
func (c Command) String() string {
	args := c.Args()
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, c.Executable)
	for idx, arg := range args {
		if idx > 0 && (args[idx-1] == "--auto-format" || args[idx-1] == "--filename-in-msg") {
			arg = `"` + arg + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}
