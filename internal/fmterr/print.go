package fmterr

import (
	"fmt"
	"strings"
)

// HumanString renders the error with the offending lines of source marked
// by a caret, preceded by up to contextLines lines of source.
func (e *Error) HumanString(source string, contextLines int) string {
	lines := strings.Split(source, "\n")
	for idx, line := range lines {
		lines[idx] = strings.TrimSuffix(line, "\r")
	}

	out := &strings.Builder{}
	fmt.Fprintf(out, "Stan %s:\n", e.Kind)
	if len(e.Positions) == 0 {
		out.WriteString("<no position information>\n")
	}
	for idx, pos := range e.Positions {
		if idx > 0 {
			out.WriteString("-----\n")
		}
		writePosition(out, pos, lines, contextLines)
	}
	out.WriteString("Message: ")
	out.WriteString(e.Error())
	out.WriteString("\n")
	return out.String()
}

func writePosition(out *strings.Builder, pos Position, lines []string, context int) {
	fmt.Fprintf(out, "Position: %s\n", pos.String())

	startLine := pos.Start.Line + 1
	startCol := pos.Start.Column + 1
	if startLine < 1 || startLine > len(lines) {
		fmt.Fprintf(out, "<line %d out of range (%d)>\n", startLine, len(lines))
		return
	}

	for lineNum := startLine - context; lineNum < startLine; lineNum++ {
		if lineNum < 1 {
			continue
		}
		fmt.Fprintf(out, "  > %03d: %s\n", lineNum, tabsToSpaces(lines[lineNum-1]))
	}

	errLine := lines[startLine-1]
	prefix := fmt.Sprintf("  > %03d", startLine)
	fmt.Fprintf(out, "%s: %s\n", prefix, tabsToSpaces(errLine))

	runes := []rune(errLine)
	if startCol == len(runes)+1 {
		// the column may point at the end of the line
		runes = append(runes, ' ')
	}

	marker := strings.Repeat(">", len(prefix))
	if startCol < 1 || startCol > len(runes) {
		fmt.Fprintf(out, "%s: <column %d out of range>\n", marker, startCol)
		return
	}

	pad := &strings.Builder{}
	for _, r := range runes[:startCol-1] {
		if r == '\t' {
			pad.WriteString("  ")
		} else {
			pad.WriteString(" ")
		}
	}
	fmt.Fprintf(out, "%s: %s^\n", marker, pad.String())
}

func tabsToSpaces(s string) string {
	return strings.ReplaceAll(s, "\t", "  ")
}
