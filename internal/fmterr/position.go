package fmterr

import (
	"fmt"
	"regexp"
	"strconv"
)

// Position represents a range within a source file. Lines and columns are
// 0-based.
type Position struct {
	// Optional filename, as reported by the formatter.
	Filename *string

	Start Point
	End   Point
}

type Point struct {
	Line   int
	Column int
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

func (p Position) String() string {
	prefix := ""
	if p.Filename != nil {
		prefix = *p.Filename + ":"
	}
	return fmt.Sprintf("%s%d:%d", prefix, p.Start.Line+1, p.Start.Column+1)
}

// stanc reports 1-based lines and 0-based columns:
//
//	Syntax error in 'model.stan', line 3, column 2 to column 7, parsing error:
//	Semantic error in 'model.stan', line 5, column 4 to line 6, column 1:
var reStancPosition = regexp.MustCompile(`(?:Syntax|Semantic) error in '([^']*)', line (\d+), column (\d+)(?: to (?:line (\d+), )?column (\d+))?`)

// ParsePositions extracts every source position mentioned in a formatter
// diagnostic.
func ParsePositions(msg string) []Position {
	matches := reStancPosition.FindAllStringSubmatch(msg, -1)
	if len(matches) == 0 {
		return nil
	}

	positions := make([]Position, 0, len(matches))
	for _, match := range matches {
		filename := match[1]
		line := atoi(match[2]) - 1
		if line < 0 {
			line = 0
		}
		start := Point{
			Line:   line,
			Column: atoi(match[3]),
		}
		end := start
		if match[5] != "" {
			end.Column = atoi(match[5])
			if match[4] != "" {
				end.Line = atoi(match[4]) - 1
			}
		}
		positions = append(positions, Position{
			Filename: &filename,
			Start:    start,
			End:      end,
		})
	}
	return positions
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
