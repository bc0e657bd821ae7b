package convert

import (
	"fmt"
	"strings"

	"github.com/gee-community/geeconvert/scanner"
)

// headerResult is the outcome of matching a line against the control-header
// shapes. When matched, text holds the translated header (without
// indentation) and opens lists the block frames the line opened. implicit
// marks a single-statement body with no brace delimiter, which closes
// automatically at the next line.
type headerResult struct {
	matched  bool
	text     string
	opens    []blockKind
	implicit bool
	// unsupported is non-empty for a recognized-but-unhandled header
	// shape; the caller passes the line through flagged. bareOpen tells
	// the caller the unsupported header still opened a block, so brace
	// accounting stays balanced.
	unsupported string
	bareOpen    bool
}

// translateHeader matches a code line (leading closers already stripped)
// against the control-header shapes: if/while/for headers, function
// definitions, and bare blocks. Lines already in target syntax are not
// matched.
func translateHeader(s string) headerResult {
	trimmed := strings.TrimSpace(s)

	switch {
	case trimmed == "{":
		return headerResult{matched: true, unsupported: "bare block", bareOpen: true}
	case keywordAt(trimmed, "if"):
		return translateCondHeader(trimmed, "if", blockCond)
	case keywordAt(trimmed, "while"):
		return translateCondHeader(trimmed, "while", blockLoop)
	case keywordAt(trimmed, "for"):
		return translateForHeader(trimmed)
	case keywordAt(trimmed, "switch"), keywordAt(trimmed, "do"), keywordAt(trimmed, "try"):
		if strings.HasSuffix(trimmed, "{") {
			return headerResult{matched: true, unsupported: "unsupported block header", bareOpen: true}
		}
		return headerResult{}
	}

	if h := translateFuncDef(trimmed); h.matched {
		return h
	}
	return headerResult{}
}

// keywordAt reports whether s starts with the keyword followed by a
// non-identifier byte.
func keywordAt(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	return len(s) == len(kw) || !isIdentByte(s[len(kw)])
}

// translateCondHeader handles `if (COND) ...` and `while (COND) ...`.
// The dialect always parenthesizes the condition, so a header without an
// opening paren is already target syntax and is left alone.
func translateCondHeader(trimmed, kw string, kind blockKind) headerResult {
	rest := strings.TrimSpace(trimmed[len(kw):])
	if rest == "" || rest[0] != '(' {
		return headerResult{}
	}
	parenEnd := scanner.FindMatchingClose(rest, 0, '(', ')')
	if parenEnd < 0 {
		return headerResult{}
	}
	cond := strings.TrimSpace(rest[1:parenEnd])
	after := strings.TrimSpace(rest[parenEnd+1:])

	// Already-converted shape like `if (x):` is left untouched.
	if strings.HasPrefix(after, ":") {
		return headerResult{}
	}

	head := kw + " " + cond + ":"
	switch {
	case after == "{":
		return headerResult{matched: true, text: head, opens: []blockKind{kind}}
	case after == "" || after == ";":
		// Single-statement body arrives on the next line.
		return headerResult{matched: true, text: head, opens: []blockKind{kind}, implicit: true}
	case strings.HasPrefix(after, "{") && strings.HasSuffix(after, "}"):
		// One-line block: `if (c) { stmt; }` → `if c: stmt`.
		body := strings.TrimSpace(after[1 : len(after)-1])
		return headerResult{matched: true, text: head + " " + body}
	default:
		// Braceless one-liner: `if (c) stmt;` → `if c: stmt`.
		return headerResult{matched: true, text: head + " " + after}
	}
}

// translateForHeader handles the two supported for-loop shapes:
//
//	for (var i = 0; i < n; i++) {  →  for i in range(0, n):
//	for (var k in obj) {           →  for k in obj:
//
// Any other header shape is flagged as unsupported rather than guessed.
func translateForHeader(trimmed string) headerResult {
	rest := strings.TrimSpace(trimmed[len("for"):])
	if rest == "" || rest[0] != '(' {
		return headerResult{}
	}
	parenEnd := scanner.FindMatchingClose(rest, 0, '(', ')')
	if parenEnd < 0 {
		return headerResult{}
	}
	header := rest[1:parenEnd]
	after := strings.TrimSpace(rest[parenEnd+1:])

	if strings.HasPrefix(after, ":") {
		return headerResult{}
	}

	semis := scanner.FindAllTopLevel(header, func(ch byte, pos int, src string) bool {
		return ch == ';'
	})

	var head string
	switch len(semis) {
	case 0:
		h, ok := forEachHeader(header)
		if !ok {
			return unsupportedFor(after)
		}
		head = h
	case 2:
		h, ok := countingForHeader(header, semis)
		if !ok {
			return unsupportedFor(after)
		}
		head = h
	default:
		return unsupportedFor(after)
	}

	switch {
	case after == "{":
		return headerResult{matched: true, text: head, opens: []blockKind{blockLoop}}
	case after == "" || after == ";":
		return headerResult{matched: true, text: head, opens: []blockKind{blockLoop}, implicit: true}
	case strings.HasPrefix(after, "{") && strings.HasSuffix(after, "}"):
		body := strings.TrimSpace(after[1 : len(after)-1])
		return headerResult{matched: true, text: head + " " + body}
	default:
		return headerResult{matched: true, text: head + " " + after}
	}
}

func unsupportedFor(after string) headerResult {
	return headerResult{
		matched:     true,
		unsupported: "unsupported for-loop header shape",
		bareOpen:    after == "{",
	}
}

// forEachHeader translates `var k in obj` → `for k in obj:`.
func forEachHeader(header string) (string, bool) {
	h := strings.TrimSpace(header)
	for _, kw := range []string{"var ", "let ", "const "} {
		h = strings.TrimPrefix(h, kw)
	}
	inIdx := strings.Index(h, " in ")
	if inIdx < 0 {
		return "", false
	}
	v := strings.TrimSpace(h[:inIdx])
	coll := strings.TrimSpace(h[inIdx+4:])
	if !isIdentifier(v) || coll == "" {
		return "", false
	}
	return "for " + v + " in " + coll + ":", true
}

// countingForHeader translates `var i = S; i < E; i++` (and the <=, +=, --
// variants) into a range() iteration. Shapes outside that vocabulary are
// rejected so the caller can flag them.
func countingForHeader(header string, semis []int) (string, bool) {
	init := strings.TrimSpace(header[:semis[0]])
	cond := strings.TrimSpace(header[semis[0]+1 : semis[1]])
	step := strings.TrimSpace(header[semis[1]+1:])

	for _, kw := range []string{"var ", "let ", "const "} {
		init = strings.TrimPrefix(init, kw)
	}
	eq := strings.Index(init, "=")
	if eq < 0 {
		return "", false
	}
	name := strings.TrimSpace(init[:eq])
	start := strings.TrimSpace(init[eq+1:])
	if !isIdentifier(name) || start == "" || strings.ContainsAny(start, ",=") {
		// Multi-variable or compound initializers are out of vocabulary.
		return "", false
	}

	if !strings.HasPrefix(cond, name) || (len(cond) > len(name) && isIdentByte(cond[len(name)])) {
		return "", false
	}
	condOp := strings.TrimSpace(cond[len(name):])
	var stop string
	switch {
	case strings.HasPrefix(condOp, "<="):
		stop = strings.TrimSpace(condOp[2:]) + " + 1"
	case strings.HasPrefix(condOp, "<"):
		stop = strings.TrimSpace(condOp[1:])
	case strings.HasPrefix(condOp, ">="):
		stop = strings.TrimSpace(condOp[2:]) + " - 1"
	case strings.HasPrefix(condOp, ">"):
		stop = strings.TrimSpace(condOp[1:])
	default:
		return "", false
	}
	if stop == "" {
		return "", false
	}

	if !strings.HasPrefix(step, name) || (len(step) > len(name) && isIdentByte(step[len(name)])) {
		return "", false
	}
	stepOp := strings.TrimSpace(step[len(name):])
	var inc string
	switch {
	case stepOp == "++":
		inc = "1"
	case stepOp == "--":
		inc = "-1"
	case strings.HasPrefix(stepOp, "+="):
		inc = strings.TrimSpace(stepOp[2:])
	case strings.HasPrefix(stepOp, "-="):
		inc = "-" + strings.TrimSpace(stepOp[2:])
	default:
		return "", false
	}
	if inc == "" || inc == "-" {
		return "", false
	}

	if inc == "1" {
		return fmt.Sprintf("for %s in range(%s, %s):", name, start, stop), true
	}
	return fmt.Sprintf("for %s in range(%s, %s, %s):", name, start, stop, inc), true
}

// translateFuncDef handles statement-position function literals, which
// become def blocks:
//
//	function name(a, b) {        →  def name(a, b):
//	var f = function(a) {        →  def f(a):
//	f = function(a) {            →  def f(a):
//
// Expression-position literals (callbacks) are left for the lambda rule.
func translateFuncDef(trimmed string) headerResult {
	if !strings.HasSuffix(trimmed, "{") {
		return headerResult{}
	}

	if keywordAt(trimmed, "function") {
		rest := strings.TrimSpace(trimmed[len("function"):])
		parenPos := strings.IndexByte(rest, '(')
		if parenPos <= 0 {
			return headerResult{}
		}
		name := strings.TrimSpace(rest[:parenPos])
		parenEnd := scanner.FindMatchingClose(rest, parenPos, '(', ')')
		if !isIdentifier(name) || parenEnd < 0 {
			return headerResult{}
		}
		if strings.TrimSpace(rest[parenEnd+1:]) != "{" {
			return headerResult{}
		}
		params := strings.TrimSpace(rest[parenPos+1 : parenEnd])
		return headerResult{
			matched: true,
			text:    "def " + name + "(" + params + "):",
			opens:   []blockKind{blockFunc},
		}
	}

	// Assignment form: [var] NAME = function(ARGS) {
	s := trimmed
	for _, kw := range []string{"var ", "let ", "const "} {
		s = strings.TrimPrefix(s, kw)
	}
	eq := findAssign(s)
	if eq < 0 {
		return headerResult{}
	}
	name := strings.TrimSpace(s[:eq])
	rhs := strings.TrimSpace(s[eq+1:])
	if !isIdentifier(name) || !keywordAt(rhs, "function") {
		return headerResult{}
	}
	rest := strings.TrimSpace(rhs[len("function"):])
	if rest == "" || rest[0] != '(' {
		return headerResult{}
	}
	parenEnd := scanner.FindMatchingClose(rest, 0, '(', ')')
	if parenEnd < 0 || strings.TrimSpace(rest[parenEnd+1:]) != "{" {
		return headerResult{}
	}
	params := strings.TrimSpace(rest[1:parenEnd])
	return headerResult{
		matched: true,
		text:    "def " + name + "(" + params + "):",
		opens:   []blockKind{blockFunc},
	}
}

// isIdentifier reports whether s is a plain identifier.
func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
