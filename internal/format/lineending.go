package format

import "strings"

// MatchLineEndings converts LF output to CRLF when most lines of the
// original end in CRLF. Output which already contains CR is returned
// unchanged.
func MatchLineEndings(original, formatted string) string {
	crlf := strings.Count(original, "\r\n")
	lf := strings.Count(original, "\n") - crlf
	if crlf == 0 || crlf < lf {
		return formatted
	}
	if strings.Contains(formatted, "\r") {
		return formatted
	}
	return strings.ReplaceAll(formatted, "\n", "\r\n")
}
