package convert

import (
	"strings"
	"unicode"

	"github.com/gee-community/geeconvert/scanner"
)

// rule is one ordered rewrite step applied to the unshielded portion of a
// line. Rules run in a fixed order so earlier rules cannot be corrupted by
// later ones operating on their output, and each rule is a no-op on text
// that already uses Python syntax.
type rule struct {
	name  string
	apply func(s string, st *lineState) string
}

// lineState carries per-line context into the rules: the 1-based source
// line number for diagnostics, whether the line continues an object/array
// literal opened on an earlier line, and any diagnostics the rules raise.
type lineState struct {
	line      int
	inLiteral bool
	res       *Result
	// unsupported is set when a rule flagged the line; the converter
	// passes the line through commented instead of emitting it as code.
	unsupported bool
}

// rewriteRules is the ordered rule table, built once at startup. The set is
// deliberately heuristic: anything it cannot match is left alone or flagged
// by the caller, never guessed at.
var rewriteRules = []rule{
	{"inline-callback", ruleInlineCallbacks},
	{"ternary", ruleTernary},
	{"declaration", ruleDropDecl},
	{"terminator", ruleDropTerminator},
	{"operators", ruleOperators},
	{"keywords", ruleKeywords},
	{"object-keys", ruleQuoteObjectKeys},
}

// applyRules runs the full rule table over one line of code.
func applyRules(s string, st *lineState) string {
	for _, r := range rewriteRules {
		s = r.apply(s, st)
	}
	return s
}

// ruleDropTerminator removes trailing statement separators. Only trailing
// semicolons go: a semicolon between simple statements on one line is valid
// in the target syntax too.
func ruleDropTerminator(s string, _ *lineState) string {
	for {
		t := strings.TrimRight(s, " \t")
		if !strings.HasSuffix(t, ";") || scanner.IsInsideString(t, len(t)-1) {
			return s
		}
		s = t[:len(t)-1]
	}
}

// ruleDropDecl elides binding keywords: the target language infers binding
// from assignment.
func ruleDropDecl(s string, _ *lineState) string {
	indent := leadingWS(s)
	trimmed := strings.TrimSpace(s)
	for _, kw := range []string{"var ", "let ", "const "} {
		if strings.HasPrefix(trimmed, kw) {
			return indent + strings.TrimSpace(trimmed[len(kw):])
		}
	}
	return s
}

// ruleTernary rewrites `cond ? a : b` into `a if cond else b`. The first
// ternary on a line is rewritten at whatever bracket depth it sits: a
// bracketed ternary is bounded by its enclosing bracket and argument
// separators, a top-level one by the assignment or return before it.
// Nested ternaries are out of scope for the heuristic.
func ruleTernary(s string, _ *lineState) string {
	depths, code := bracketDepths(s)
	qPos := -1
	for i := 0; i < len(s); i++ {
		if code[i] && s[i] == '?' {
			qPos = i
			break
		}
	}
	if qPos < 0 {
		return s
	}
	d := depths[qPos]
	cPos := -1
	for i := qPos + 1; i < len(s); i++ {
		if code[i] && s[i] == ':' && depths[i] == d {
			cPos = i
			break
		}
	}
	if cPos < 0 {
		return s
	}

	// The condition starts after the assignment or return at top level,
	// or after the enclosing bracket, argument comma, or object key colon
	// when the ternary is bracketed.
	condStart := 0
	if d == 0 {
		if eq := findAssign(s[:qPos]); eq >= 0 {
			condStart = eq + 1
		} else if idx := strings.Index(s, "return "); idx >= 0 && !scanner.IsInsideString(s, idx) {
			condStart = idx + len("return ")
		}
	} else {
		for i := qPos - 1; i >= 0; i-- {
			if depths[i] < d || (code[i] && depths[i] == d && (s[i] == ',' || s[i] == ':')) {
				condStart = i + 1
				break
			}
		}
	}

	// The false branch runs to the closing bracket or the next argument
	// separator at the ternary's depth.
	bEnd := len(s)
	if d > 0 {
		for i := cPos + 1; i < len(s); i++ {
			if depths[i] < d || (code[i] && depths[i] == d && s[i] == ',') {
				bEnd = i
				break
			}
		}
	}

	cond := strings.TrimSpace(s[condStart:qPos])
	a := strings.TrimSpace(s[qPos+1 : cPos])
	b := strings.TrimSpace(s[cPos+1 : bEnd])
	if cond == "" || a == "" || b == "" {
		return s
	}
	out := a + " if " + cond + " else " + b
	if d > 0 {
		// Keep the whitespace between the boundary and the condition.
		lead := s[condStart:qPos]
		ws := lead[:len(lead)-len(strings.TrimLeft(lead, " \t"))]
		return s[:condStart] + ws + out + s[bEnd:]
	}
	if pre := strings.TrimRight(s[:condStart], " "); pre != "" {
		out = pre + " " + out
	}
	return out + s[bEnd:]
}

// bracketDepths maps every byte of s to its bracket nesting depth and
// whether it sits outside shielded spans. Opening and closing bracket
// bytes themselves carry the outer depth, so a depth-drop marks the
// bracket position from either direction.
func bracketDepths(s string) (depths []int, code []bool) {
	depths = make([]int, len(s))
	code = make([]bool, len(s))
	depth := 0
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		i := sc.Pos()
		code[i] = sc.InCode()
		if code[i] && scanner.IsCloseBracket(ch) && depth > 0 {
			depth--
		}
		depths[i] = depth
		if code[i] && scanner.IsOpenBracket(ch) {
			depth++
		}
	}
	return depths, code
}

// findAssign finds a top-level assignment `=` (not ==, !=, <=, >=, =>).
func findAssign(s string) int {
	return scanner.FindTopLevel(s, func(ch byte, pos int, src string) bool {
		if ch != '=' {
			return false
		}
		if pos+1 < len(src) && (src[pos+1] == '=' || src[pos+1] == '>') {
			return false
		}
		if pos > 0 && (src[pos-1] == '!' || src[pos-1] == '<' || src[pos-1] == '>' || src[pos-1] == '=') {
			return false
		}
		return true
	})
}

// ruleOperators translates operator idioms: === and !== lose their strict
// forms, && and || become boolean keywords, and a bare ! becomes `not `.
// Shielded spans are untouched.
func ruleOperators(s string, _ *lineState) string {
	var sb strings.Builder
	sb.Grow(len(s))
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() || sc.InComment() {
			sb.WriteByte(ch)
			continue
		}
		switch {
		case ch == '!' && sc.LookingAt("!=="):
			sb.WriteString("!=")
			sc.Skip(2)
		case ch == '=' && sc.LookingAt("==="):
			sb.WriteString("==")
			sc.Skip(2)
		case ch == '&' && sc.LookingAt("&&"):
			writeWordOp(&sb, "and", s, sc.Pos()+2)
			sc.Skip(1)
		case ch == '|' && sc.LookingAt("||"):
			writeWordOp(&sb, "or", s, sc.Pos()+2)
			sc.Skip(1)
		case ch == '!' && !sc.LookingAt("!="):
			sb.WriteString("not ")
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// writeWordOp emits a keyword operator in place of a symbol one, adding a
// space on either side where the source glued the symbol directly against
// an operand. end is the offset just past the symbol in src.
func writeWordOp(sb *strings.Builder, word, src string, end int) {
	if out := sb.String(); out != "" && out[len(out)-1] != ' ' && out[len(out)-1] != '\t' {
		sb.WriteByte(' ')
	}
	sb.WriteString(word)
	if end < len(src) && src[end] != ' ' && src[end] != '\t' {
		sb.WriteByte(' ')
	}
}

// jsKeywordMap maps dialect literal keywords to their Python spellings.
var jsKeywordMap = map[string]string{
	"true":      "True",
	"false":     "False",
	"null":      "None",
	"undefined": "None",
	"new":       "", // constructor calls lose the keyword
}

// ruleKeywords replaces literal keywords at word boundaries, outside
// shielded spans.
func ruleKeywords(s string, _ *lineState) string {
	var sb strings.Builder
	sb.Grow(len(s))
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() || sc.InComment() || !isIdentStart(ch) {
			sb.WriteByte(ch)
			continue
		}
		start := sc.Pos()
		preceded := start > 0 && isIdentByte(s[start-1])
		end := start + 1
		for end < len(s) && isIdentByte(s[end]) {
			end++
		}
		word := s[start:end]
		sc.Skip(end - start - 1)
		repl, isKw := jsKeywordMap[word]
		if !isKw || preceded {
			sb.WriteString(word)
			continue
		}
		if word == "new" {
			// Drop the keyword and the spacing that followed it.
			for {
				next, ok := sc.Peek()
				if !ok || (next != ' ' && next != '\t') {
					break
				}
				sc.Next()
			}
			continue
		}
		sb.WriteString(repl)
	}
	return sb.String()
}

// ruleQuoteObjectKeys rewrites bare identifier keys in object literals into
// quoted mapping keys:
//
//	{min: 0, max: 100}  →  {'min': 0, 'max': 100}
//
// A key is a bare identifier directly preceded (ignoring whitespace) by `{`
// or `,` inside a brace literal, followed by `:`. On literal continuation
// lines the start of the line counts as a `,` context. String contents are
// untouched, so already-quoted keys are idempotent.
func ruleQuoteObjectKeys(s string, st *lineState) string {
	var sb strings.Builder
	sb.Grow(len(s))
	braceDepth := 0
	var lastSig byte // last significant code byte seen
	atStart := true

	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() || sc.InComment() {
			sb.WriteByte(ch)
			lastSig = 0
			atStart = false
			continue
		}
		if ch == ' ' || ch == '\t' {
			sb.WriteByte(ch)
			continue
		}
		if ch == '{' {
			braceDepth++
		} else if ch == '}' && braceDepth > 0 {
			braceDepth--
		}

		if isIdentStart(ch) {
			start := sc.Pos()
			end := start + 1
			for end < len(s) && isIdentByte(s[end]) {
				end++
			}
			ident := s[start:end]
			sc.Skip(end - start - 1)

			inLiteral := braceDepth > 0 || (st != nil && st.inLiteral)
			keyContext := lastSig == '{' || lastSig == ',' || (atStart && st != nil && st.inLiteral)
			if inLiteral && keyContext && end < len(s) && s[end] == ':' {
				sb.WriteByte('\'')
				sb.WriteString(ident)
				sb.WriteByte('\'')
			} else {
				sb.WriteString(ident)
			}
			lastSig = 'a'
			atStart = false
			continue
		}

		sb.WriteByte(ch)
		lastSig = ch
		atStart = false
	}
	return sb.String()
}

// ruleInlineCallbacks rewrites anonymous function literals whose body is a
// single return expression into lambdas:
//
//	.map(function(x) { return x.clip(region); })
//	→ .map(lambda x: x.clip(region))
//
// A multi-statement body that cannot be expressed as one expression is
// flagged as unsupported rather than guessed. Function literals whose
// braces do not close on the same line are statement bodies and are handled
// by the header pass before this rule runs; any left over here are
// multi-line callbacks and also flagged.
func ruleInlineCallbacks(s string, st *lineState) string {
	for {
		fnPos := findFunctionKeyword(s, 0)
		if fnPos < 0 {
			return s
		}
		parenPos := fnPos + len("function")
		for parenPos < len(s) && (s[parenPos] == ' ' || s[parenPos] == '\t') {
			parenPos++
		}
		if parenPos >= len(s) || s[parenPos] != '(' {
			// Named function in expression position; leave it for the
			// header pass or passthrough.
			return s
		}
		parenEnd := scanner.FindMatchingClose(s, parenPos, '(', ')')
		if parenEnd < 0 {
			return s
		}
		params := strings.TrimSpace(s[parenPos+1 : parenEnd])

		bracePos := parenEnd + 1
		for bracePos < len(s) && (s[bracePos] == ' ' || s[bracePos] == '\t') {
			bracePos++
		}
		if bracePos >= len(s) || s[bracePos] != '{' {
			return s
		}
		braceEnd := scanner.FindMatchingClose(s, bracePos, '{', '}')
		if braceEnd < 0 {
			if st != nil {
				st.res.diag(st.line, UnsupportedConstruct,
					"multi-statement anonymous function cannot be expressed as a single expression")
				st.unsupported = true
			}
			return s
		}

		body := strings.TrimSpace(s[bracePos+1 : braceEnd])
		body = strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(body, ";")), ";")
		expr := ""
		switch {
		case body == "":
			expr = "None"
		case strings.HasPrefix(body, "return "):
			expr = strings.TrimSpace(body[len("return "):])
		}
		if expr == "" || containsTopLevelSemi(expr) {
			if st != nil {
				st.res.diag(st.line, UnsupportedConstruct,
					"multi-statement anonymous function cannot be expressed as a single expression")
				st.unsupported = true
			}
			return s
		}

		lambda := "lambda"
		if params != "" {
			lambda += " " + params
		}
		s = s[:fnPos] + lambda + ": " + expr + s[braceEnd+1:]
	}
}

// containsTopLevelSemi reports whether s has a `;` outside strings and
// brackets, meaning more than one statement.
func containsTopLevelSemi(s string) bool {
	return scanner.FindTopLevel(s, func(ch byte, pos int, src string) bool {
		return ch == ';'
	}) >= 0
}

// findFunctionKeyword finds the next `function` keyword at a word boundary,
// outside strings and comments, starting from pos.
func findFunctionKeyword(s string, pos int) int {
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.Pos() < pos || sc.InString() || sc.InComment() {
			continue
		}
		if ch != 'f' || !sc.LookingAt("function") {
			continue
		}
		start := sc.Pos()
		if start > 0 && isIdentByte(s[start-1]) {
			continue
		}
		after := start + len("function")
		if after < len(s) && isIdentByte(s[after]) {
			continue
		}
		return start
	}
	return -1
}

func leadingWS(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(rune(ch))
}

func isIdentByte(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
