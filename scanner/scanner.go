// Package scanner provides string- and comment-boundary-aware scanning for
// the Earth Engine JavaScript converter. It encapsulates the tracking of
// double-quoted, single-quoted, and template-literal strings plus line and
// block comments, eliminating the need for every rewrite rule to
// re-implement this logic.
package scanner

import "strings"

// closingKind tracks which type of shielded span was just closed.
type closingKind byte

const (
	noClosing      closingKind = iota
	closingDouble              // just closed a "..." string
	closingSingle              // just closed a '...' string
	closingTpl                 // just closed a `...` template literal
	closingBlock               // just closed a /* ... */ comment
)

// CodeScanner iterates byte-by-byte over source text, tracking string
// literal boundaries (double-quoted, single-quoted, template literal),
// escape sequences, and line/block comments. Callers check InString() and
// InComment() instead of maintaining their own inDouble/inSingle/escaped
// flags.
//
// InString() and InComment() return true for the entire span including both
// opening and closing delimiters, matching the converter's convention of
// skipping all bytes that are part of shielded spans. The newline that ends
// a line comment is not part of the comment.
type CodeScanner struct {
	src       string
	pos       int
	line      int
	inDbl     bool
	inSgl     bool
	inTpl     bool
	inLine    bool
	inBlock   bool
	escaped   bool
	blockOpen int         // byte offset where the current block comment opened
	closing   closingKind // set when a closing delimiter is processed
}

// New creates a CodeScanner for the given source text.
// Call Next() to advance to the first byte.
func New(src string) *CodeScanner {
	return &CodeScanner{src: src, pos: -1, line: 1}
}

// Next advances to the next byte, updating string/comment/escape state.
// Returns the byte and true, or (0, false) at end of input.
func (s *CodeScanner) Next() (byte, bool) {
	s.closing = noClosing
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]
	if ch == '\n' {
		s.line++
	}

	if s.inLine {
		if ch == '\n' {
			s.inLine = false
		}
		return ch, true
	}
	if s.inBlock {
		// A block comment closes at "*/", but not before the opener has
		// room for a body: "/*/" does not close itself.
		if ch == '/' && s.pos >= s.blockOpen+3 && s.src[s.pos-1] == '*' {
			s.inBlock = false
			s.closing = closingBlock
		}
		return ch, true
	}

	if s.escaped {
		s.escaped = false
		return ch, true
	}
	if ch == '\\' && (s.inDbl || s.inSgl || s.inTpl) {
		s.escaped = true
		return ch, true
	}
	if ch == '"' && !s.inSgl && !s.inTpl {
		if s.inDbl {
			s.closing = closingDouble
		}
		s.inDbl = !s.inDbl
	} else if ch == '\'' && !s.inDbl && !s.inTpl {
		if s.inSgl {
			s.closing = closingSingle
		}
		s.inSgl = !s.inSgl
	} else if ch == '`' && !s.inDbl && !s.inSgl {
		if s.inTpl {
			s.closing = closingTpl
		}
		s.inTpl = !s.inTpl
	} else if ch == '/' && !s.inDbl && !s.inSgl && !s.inTpl {
		if next, ok := s.Peek(); ok {
			if next == '/' {
				s.inLine = true
			} else if next == '*' {
				s.inBlock = true
				s.blockOpen = s.pos
			}
		}
	}

	return ch, true
}

// InString reports whether the current position is inside a string literal
// (double-quoted, single-quoted, or template literal), including both
// opening and closing delimiters.
func (s *CodeScanner) InString() bool {
	return s.inDbl || s.inSgl || s.inTpl ||
		s.closing == closingDouble || s.closing == closingSingle || s.closing == closingTpl
}

// InComment reports whether the current position is inside a line or block
// comment, including the delimiters.
func (s *CodeScanner) InComment() bool {
	return s.inLine || s.inBlock || s.closing == closingBlock
}

// InTemplate reports whether the current position is inside a template
// literal.
func (s *CodeScanner) InTemplate() bool { return s.inTpl || s.closing == closingTpl }

// InBlockComment reports whether the current position is inside a /* */
// comment.
func (s *CodeScanner) InBlockComment() bool { return s.inBlock || s.closing == closingBlock }

// InLineComment reports whether the current position is inside a // comment.
func (s *CodeScanner) InLineComment() bool { return s.inLine }

// InCode reports whether the current position is outside all shielded spans.
func (s *CodeScanner) InCode() bool { return !s.InString() && !s.InComment() }

// Unterminated reports whether a string or block comment is still open.
// Meaningful after Next() has returned false.
func (s *CodeScanner) Unterminated() bool {
	return s.inDbl || s.inSgl || s.inTpl || s.inBlock
}

// Pos returns the current byte offset (the position of the last byte
// returned by Next). Returns -1 before the first call to Next.
func (s *CodeScanner) Pos() int { return s.pos }

// Line returns the current 1-based line number.
func (s *CodeScanner) Line() int { return s.line }

// Src returns the full source text being scanned.
func (s *CodeScanner) Src() string { return s.src }

// Peek returns the next byte without advancing, or (0, false) at end.
func (s *CodeScanner) Peek() (byte, bool) {
	if s.pos+1 >= len(s.src) {
		return 0, false
	}
	return s.src[s.pos+1], true
}

// LookingAt checks if src[pos:] starts with the given prefix.
// Useful for multi-character token detection (e.g., "===", "else if").
func (s *CodeScanner) LookingAt(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// Skip advances past n bytes without returning them. String/comment state
// is updated for each skipped byte. Returns the number of bytes actually
// skipped (may be less than n at end of input).
func (s *CodeScanner) Skip(n int) int {
	skipped := 0
	for i := 0; i < n; i++ {
		if _, ok := s.Next(); !ok {
			break
		}
		skipped++
	}
	return skipped
}

// IsOpenBracket reports whether ch is an opening bracket/paren/brace.
func IsOpenBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloseBracket reports whether ch is a closing bracket/paren/brace.
func IsCloseBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// FindTopLevel scans s for a byte matching pred at bracket depth 0, outside
// all strings and comments. Returns the byte offset or -1.
//
// This covers the common pattern used by the for-header and
// function-literal rewrite rules.
func FindTopLevel(s string, pred func(ch byte, pos int, src string) bool) int {
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() || sc.InComment() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
		}
		if depth == 0 && pred(ch, sc.Pos(), s) {
			return sc.Pos()
		}
	}
	return -1
}

// FindAllTopLevel is like FindTopLevel but returns all matching positions.
func FindAllTopLevel(s string, pred func(ch byte, pos int, src string) bool) []int {
	var positions []int
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() || sc.InComment() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
		}
		if depth == 0 && pred(ch, sc.Pos(), s) {
			positions = append(positions, sc.Pos())
		}
	}
	return positions
}

// FindMatchingClose finds the position of the closing bracket matching the
// open bracket at position openPos, respecting strings and comments.
// Returns -1 if not found.
func FindMatchingClose(s string, openPos int, open, close byte) int {
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.Pos() < openPos || sc.InString() || sc.InComment() {
			continue
		}
		if ch == open {
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return sc.Pos()
			}
		}
	}
	return -1
}

// IsInsideString reports whether byte offset pos in s falls inside a string
// literal. It checks the string state just before pos (scanning bytes
// 0..pos-1), so opening delimiters return false and closing delimiters
// return true.
func IsInsideString(s string, pos int) bool {
	sc := New(s)
	for i := 0; i < pos; i++ {
		if _, ok := sc.Next(); !ok {
			return false
		}
	}
	// Raw state reflects whether a string has been opened but not yet
	// closed, without the closing-delimiter correction InString() applies.
	return sc.inDbl || sc.inSgl || sc.inTpl
}
