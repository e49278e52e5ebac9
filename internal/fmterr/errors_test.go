package fmterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want Kind
	}{
		{errors.New("Semantic error: mismatched types"), KindUserSemantic},
		{errors.New("Syntax error in 'a.stan', line 1, column 0 to column 4, parsing error:"), KindUserSyntax},
		{errors.New("syntax error, lower case"), KindToolFailure},
		{errors.New("segmentation fault"), KindToolFailure},
		{Environment(errors.New("exec: not found"), "stanc cannot be found"), KindEnvironment},
		{fmt.Errorf("acquire: %w", IO(errors.New("disk full"), "write temp file")), KindIO},
		{errors.Join(Formatter(errors.New("Semantic error"), "", ""), IO(nil, "remove")), KindUserSemantic},
	} {
		assert.Equal(t, tc.want, Classify(tc.err), tc.err.Error())
	}
}

func TestFormatterError(t *testing.T) {
	stderr := "Semantic error in 'model.stan', line 3, column 4 to column 9:\n   ...\n"
	fe := Formatter(errors.New("Command failed: stanc --auto-format model.stan\n"+stderr), "", stderr)
	assert.Equal(t, KindUserSemantic, fe.Kind)
	assert.Equal(t, stderr, fe.Stderr)
	if assert.Len(t, fe.Positions, 1) {
		assert.Equal(t, "model.stan:3:5", fe.Positions[0].String())
	}

	// the command line holds the user's path, which must not drive the kind
	fe = Formatter(errors.New("Command failed: stanc --auto-format /work/Syntax/model.stan\nStack overflow"), "", "Stack overflow\n")
	assert.Equal(t, KindToolFailure, fe.Kind)
}

type fakeProcessError struct {
	timedOut       bool
	stdout, stderr string
}

func (fp *fakeProcessError) Error() string {
	if fp.timedOut {
		return "Command timed out: /home/me/SyntaxExamples/stanc --auto-format /home/me/SyntaxExamples/model.stan"
	}
	return "Command failed: /home/me/SyntaxExamples/stanc --auto-format /home/me/SyntaxExamples/model.stan"
}

func (fp *fakeProcessError) Timeout() bool                   { return fp.timedOut }
func (fp *fakeProcessError) Output() (stdout, stderr string) { return fp.stdout, fp.stderr }

func TestFormatterErrorTimeout(t *testing.T) {
	fe := Formatter(&fakeProcessError{timedOut: true}, "", "")
	assert.Equal(t, KindToolFailure, fe.Kind)
	assert.Empty(t, fe.Positions)

	fe = Formatter(fmt.Errorf("run: %w", &fakeProcessError{
		timedOut: true,
		stderr:   "Syntax error in 'model.stan', line 1, column 0:\n",
	}), "", "")
	assert.Equal(t, KindToolFailure, fe.Kind, "a timeout is never the user's error")
}

func TestFormatterErrorEmptyStreams(t *testing.T) {
	// only the command line mentions Syntax
	fe := Formatter(&fakeProcessError{}, "", "")
	assert.Equal(t, KindToolFailure, fe.Kind)
}

func TestFormatterErrorStreams(t *testing.T) {
	stderr := "Warning: deprecated syntax\n"
	stdout := "Semantic error in 'model.stan', line 2, column 4 to column 9:\n"

	fe := Formatter(assert.AnError, stdout, stderr)
	assert.Equal(t, KindUserSemantic, fe.Kind)
	if assert.Len(t, fe.Positions, 1) {
		assert.Equal(t, "model.stan:2:5", fe.Positions[0].String())
	}

	// streams are taken from the process error when none are passed
	fe = Formatter(&fakeProcessError{stdout: stdout}, "", "")
	assert.Equal(t, KindUserSemantic, fe.Kind)
	assert.Equal(t, stdout, fe.Stdout)
	assert.Len(t, fe.Positions, 1)
}

func TestMessageJoined(t *testing.T) {
	err := errors.Join(
		Formatter(errors.New("Command failed: stanc"), "", "Syntax error in 'a.stan', line 1, column 0:\n"),
		IO(errors.New("no such file"), "Failed to delete temporary file %q", "/tmp/a.stan"),
	)
	assert.Equal(t, KindUserSyntax, Classify(err))
	assert.Equal(t, "Command failed: stanc\nFailed to delete temporary file \"/tmp/a.stan\": no such file", Message(err))

	assert.Equal(t, "disk full", Message(fmt.Errorf("acquire: %w", IO(nil, "disk full"))))
}

func TestParsePositions(t *testing.T) {
	filename := "model.stan"
	for _, tc := range []struct {
		msg  string
		want []Position
	}{{
		msg: "Syntax error in 'model.stan', line 3, column 2 to column 7, parsing error:",
		want: []Position{{
			Filename: &filename,
			Start:    Point{Line: 2, Column: 2},
			End:      Point{Line: 2, Column: 7},
		}},
	}, {
		msg: "Semantic error in 'model.stan', line 5, column 4 to line 6, column 1:",
		want: []Position{{
			Filename: &filename,
			Start:    Point{Line: 4, Column: 4},
			End:      Point{Line: 5, Column: 1},
		}},
	}, {
		msg: "Syntax error in 'model.stan', line 1, column 0, lexing error:",
		want: []Position{{
			Filename: &filename,
			Start:    Point{Line: 0, Column: 0},
			End:      Point{Line: 0, Column: 0},
		}},
	}, {
		msg:  "Semantic error: mismatched types",
		want: nil,
	}} {
		got := ParsePositions(tc.msg)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("positions for %q (-want +got):\n%s", tc.msg, diff)
		}
	}
}
