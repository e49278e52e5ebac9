package textedit

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pentops/stanfmt/internal/textdiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

var fixedPairs = []struct {
	name      string
	original  string
	formatted string
}{
	{"replace line", "a\nb\nc\n", "a\nB\nc\n"},
	{"empty to text", "", "data {\n}\n"},
	{"text to empty", "data {\n}\n", ""},
	{"add final newline", "a\nb", "a\nb\n"},
	{"remove final newline", "a\nb\n", "a\nb"},
	{"crlf to lf", "a\r\nb\r\n", "a\nb\n"},
	{"mixed delimiters", "a\r\nb\nc\r\n", "a\nb\r\nc\r\n"},
	{"insert at start", "b\nc\n", "a\nb\nc\n"},
	{"append", "a\n", "a\nb\nc\n"},
	{"reindent", "model {\ny ~ normal(0,1);\n}\n", "model {\n  y ~ normal(0, 1);\n}\n"},
	{"blank lines collapsed", "a\n\n\n\nb\n", "a\n\nb\n"},
	{"lone carriage return", "a\rb\n", "a\r\nb\n"},
	{"unicode", "x = \"é😀\";\n", "x = \"é😀\" ;\n"},
}

func TestFromHunksIdentical(t *testing.T) {
	for _, pair := range fixedPairs {
		edits := FromHunks(textdiff.Compute(pair.original, pair.original).Hunks)
		assert.NotNil(t, edits)
		assert.Empty(t, edits, pair.name)
	}

	assert.NotNil(t, FromHunks(nil))
}

func TestFromHunksScenario(t *testing.T) {
	edits := FromHunks(textdiff.Compute("a\nb\nc\n", "a\nB\nc\n").Hunks)
	want := []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 1},
			End:   protocol.Position{Line: 2},
		},
		NewText: "B\n",
	}}
	if diff := cmp.Diff(want, edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHunksWithContext(t *testing.T) {
	patch := textdiff.Compute("a\nb\nc\nd\ne\n", "a\nb\nC\nd\ne\n", textdiff.WithContext(1))
	edits := FromHunks(patch.Hunks)
	want := []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 1},
			End:   protocol.Position{Line: 4},
		},
		NewText: "b\nC\nd\n",
	}}
	if diff := cmp.Diff(want, edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHunkMissingDelimiter(t *testing.T) {
	edit := FromHunk(textdiff.Hunk{
		OldStart: 1,
		OldLines: 1,
		Lines: []textdiff.Line{
			{Op: textdiff.OpRemove, Content: "a", Delimiter: "\n"},
			{Op: textdiff.OpAdd, Content: "A"},
			{Op: textdiff.OpAdd, Content: "B", NoEOL: true},
		},
	})
	assert.Equal(t, "A\nB", edit.NewText)
}

func TestRoundTripFixed(t *testing.T) {
	for _, pair := range fixedPairs {
		t.Run(pair.name, func(t *testing.T) {
			assertRoundTrip(t, pair.original, pair.formatted)
		})
	}
}

func TestRoundTripRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(20240611))
	for idx := 0; idx < 500; idx++ {
		original := randomText(rnd)
		formatted := mutateText(rnd, original)
		assertRoundTrip(t, original, formatted)
		if t.Failed() {
			t.Logf("original %q formatted %q", original, formatted)
			return
		}
	}
}

func assertRoundTrip(t *testing.T, original, formatted string) {
	t.Helper()

	for _, context := range []int{0, 2} {
		edits := FromHunks(textdiff.Compute(original, formatted, textdiff.WithContext(context)).Hunks)

		for idx := 1; idx < len(edits); idx++ {
			prev, next := edits[idx-1].Range, edits[idx].Range
			assert.Less(t, prev.Start.Line, next.Start.Line, "edits must be strictly increasing")
			assert.LessOrEqual(t, prev.End.Line, next.Start.Line, "edits must not overlap")
		}

		batched, err := Apply(original, edits)
		require.NoError(t, err)
		assert.Equal(t, formatted, batched, "batched application")

		reverse := original
		for idx := len(edits) - 1; idx >= 0; idx-- {
			reverse, err = Apply(reverse, edits[idx:idx+1])
			require.NoError(t, err)
		}
		assert.Equal(t, formatted, reverse, "reverse order application")
	}
}

var randomLines = []string{"a", "b", "c", "model {", "}", "", "  y ~ normal(mu, sigma);", "\r"}

func randomText(rnd *rand.Rand) string {
	count := rnd.Intn(8)
	sb := &strings.Builder{}
	for idx := 0; idx < count; idx++ {
		sb.WriteString(randomLines[rnd.Intn(len(randomLines))])
		sb.WriteString(randomDelimiter(rnd))
	}
	if rnd.Intn(4) == 0 {
		sb.WriteString(randomLines[rnd.Intn(len(randomLines))])
	}
	return sb.String()
}

func randomDelimiter(rnd *rand.Rand) string {
	if rnd.Intn(3) == 0 {
		return "\r\n"
	}
	return "\n"
}

func mutateText(rnd *rand.Rand, text string) string {
	lines := textdiff.SplitLines(text)
	out := &strings.Builder{}
	for _, line := range lines {
		switch rnd.Intn(6) {
		case 0:
			continue
		case 1:
			out.WriteString(randomLines[rnd.Intn(len(randomLines))])
			out.WriteString(randomDelimiter(rnd))
		case 2:
			out.WriteString(strings.ToUpper(line.Content))
			out.WriteString(line.Delimiter)
		}
		out.WriteString(line.Content)
		out.WriteString(line.Delimiter)
	}
	if rnd.Intn(3) == 0 {
		out.WriteString(randomText(rnd))
	}
	return out.String()
}
