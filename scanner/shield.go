package scanner

import "fmt"

// SpanKind classifies a shielded byte range.
type SpanKind byte

const (
	SpanString SpanKind = iota
	SpanLineComment
	SpanBlockComment
)

func (k SpanKind) String() string {
	switch k {
	case SpanString:
		return "string"
	case SpanLineComment:
		return "line-comment"
	case SpanBlockComment:
		return "block-comment"
	}
	return "unknown"
}

// Span is a byte range [Start, End) of the source that rewrite rules must
// not modify: a string literal or a comment, including its delimiters.
type Span struct {
	Start int
	End   int
	Kind  SpanKind
}

// Shielded is the shielded view of a source text: the raw text plus the
// ordered, non-overlapping list of spans that are opaque to rewrite rules.
type Shielded struct {
	Src   string
	Spans []Span
	// Truncated is non-nil when a string or block comment was still open
	// at end of input. The remainder of the file from Truncated.Start on
	// is part of Spans and must be passed through untouched.
	Truncated *Span
	// Err describes the unterminated literal, with its opening line.
	Err error
}

// Shield scans src and marks every byte range that is inside a string
// literal (single-quoted, double-quoted, or template) or inside a line or
// block comment. A comment-looking substring inside a string (for example a
// URL containing "//") is classified as string, not comment. Block comments
// may span multiple lines.
//
// An unterminated string or block comment is reported via the Truncated
// span and Err; the remainder of the file is treated as shielded rather
// than guessed at.
func Shield(src string) *Shielded {
	sh := &Shielded{Src: src}
	sc := New(src)

	open := -1
	var kind SpanKind
	openLine := 0

	closeSpan := func(end int) {
		if open >= 0 {
			sh.Spans = append(sh.Spans, Span{Start: open, End: end, Kind: kind})
			open = -1
		}
	}

	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		var k SpanKind
		shielded := true
		switch {
		case sc.InString():
			k = SpanString
		case sc.InBlockComment():
			k = SpanBlockComment
		case sc.InLineComment():
			k = SpanLineComment
		default:
			shielded = false
		}

		if !shielded {
			closeSpan(sc.Pos())
			continue
		}
		if open >= 0 && k != kind {
			closeSpan(sc.Pos())
		}
		if open < 0 {
			open = sc.Pos()
			kind = k
			openLine = sc.Line()
		}
	}

	if sc.Unterminated() {
		// Everything from the opener to EOF stays shielded.
		closeSpan(len(src))
		last := &sh.Spans[len(sh.Spans)-1]
		sh.Truncated = last
		what := "string literal"
		if last.Kind == SpanBlockComment {
			what = "block comment"
		}
		sh.Err = fmt.Errorf("unterminated %s (opened at line %d)", what, openLine)
		return sh
	}

	closeSpan(len(src))
	return sh
}

// InShielded reports whether byte offset pos falls inside a shielded span.
func (sh *Shielded) InShielded(pos int) bool {
	for _, sp := range sh.Spans {
		if pos >= sp.Start && pos < sp.End {
			return true
		}
		if sp.Start > pos {
			break
		}
	}
	return false
}

// SpanAt returns the shielded span containing pos, or nil.
func (sh *Shielded) SpanAt(pos int) *Span {
	for i := range sh.Spans {
		sp := &sh.Spans[i]
		if pos >= sp.Start && pos < sp.End {
			return sp
		}
		if sp.Start > pos {
			break
		}
	}
	return nil
}
