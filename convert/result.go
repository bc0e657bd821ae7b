package convert

import "fmt"

// DiagKind classifies a conversion diagnostic.
type DiagKind string

const (
	// UnsupportedConstruct marks a recognized but unhandled syntactic
	// shape: complex for-headers, multi-statement callbacks, ui.* or
	// Chart.* calls, exports/require.
	UnsupportedConstruct DiagKind = "unsupported-construct"
	// UnterminatedLiteral marks an unterminated string or block comment
	// at end of file.
	UnterminatedLiteral DiagKind = "unterminated-literal"
	// UnbalancedBraces marks a block close without a matching open, or
	// blocks still open at end of file.
	UnbalancedBraces DiagKind = "unbalanced-braces"
)

// Diagnostic is a recorded, non-fatal note that a specific line could not
// be fully translated. The offending line is passed through commented
// rather than discarded.
type Diagnostic struct {
	Line int      `yaml:"line"`
	Kind DiagKind `yaml:"kind"`
	Msg  string   `yaml:"msg"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Msg)
}

// Result holds the outcome of converting one source file. Conversion is
// best-effort: a Result with diagnostics still carries the full converted
// text. OK is false only for hard failures (a truncating unterminated
// literal, or blocks still open at EOF), where the emitted text is
// substantially incomplete.
type Result struct {
	Text        string
	Diagnostics []Diagnostic
	OK          bool
}

func (r *Result) diag(line int, kind DiagKind, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Line: line,
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// marker is the comment prefix used to flag passthrough lines in the
// emitted Python source.
const marker = "# geeconvert:"
