// Package convert translates Earth Engine Code Editor JavaScript into
// equivalent Python source. It is deliberately not a parser: an ordered
// table of text-level rewrite rules runs over the unshielded portions of
// each line, and an explicit block-frame stack reconstructs significant
// whitespace from brace nesting. The converter is best-effort and always
// terminates: anything it cannot translate is passed through flagged with a
// diagnostic, never silently guessed at.
//
// The Earth Engine Python API mirrors the JavaScript API almost one-to-one,
// so identifiers and dotted method chains are passed through untouched.
package convert

import (
	"strings"

	"github.com/gee-community/geeconvert/scanner"
)

const defaultIndentWidth = 4

// Options configures a conversion. The zero value is usable.
type Options struct {
	// IndentWidth is the number of spaces per nesting level (default 4).
	IndentWidth int
	// Header prepends the import preamble and interactive-map
	// substitution expected by converted scripts.
	Header bool
}

// headerLines is the preamble prepended when Options.Header is set, with
// geemap standing in for the Code Editor's implicit Map object.
var headerLines = []string{
	"import ee",
	"import geemap",
	"",
	"Map = geemap.Map()",
	"",
}

// unsupportedNamespaces are dialect sub-APIs with no Python equivalent.
// Calls into them are surfaced as diagnostics rather than mistranslated.
var unsupportedNamespaces = []string{"ui.", "Chart.", "exports.", "require("}

// Convert translates one dialect source file into Python. It never returns
// an error: failures are reported in-band through the Result's diagnostics
// and OK flag, so a batch caller can always inspect what happened per file.
func Convert(src string, opts Options) *Result {
	if opts.IndentWidth <= 0 {
		opts.IndentWidth = defaultIndentWidth
	}
	c := &converter{
		opts: opts,
		res:  &Result{OK: true},
		sh:   scanner.Shield(src),
	}
	c.run(src)
	return c.res
}

type converter struct {
	opts   Options
	res    *Result
	sh     *scanner.Shielded
	ctx    context
	out    []string
	lineNo int
}

func (c *converter) run(src string) {
	truncStart := -1
	if c.sh.Truncated != nil {
		truncStart = c.sh.Truncated.Start
	}

	lines := strings.Split(src, "\n")
	off := 0
	flagged := false
	for _, line := range lines {
		c.lineNo++
		if truncStart >= 0 && off+len(line) > truncStart {
			// The rest of the file is inside an unterminated literal:
			// shielded, passed through untouched.
			if !flagged {
				c.res.diag(c.lineNo, UnterminatedLiteral, "%s", c.sh.Err.Error())
				c.out = append(c.out, marker+" "+c.sh.Err.Error())
				c.res.OK = false
				flagged = true
			}
			c.out = append(c.out, line)
			off += len(line) + 1
			continue
		}
		c.processLine(line, off)
		off += len(line) + 1
	}

	c.ctx.closeImplicit()
	if !c.ctx.frozen && len(c.ctx.stack) > 0 {
		for _, f := range c.ctx.stack {
			if f.kind == blockLiteral {
				continue
			}
			c.res.diag(f.line, UnbalancedBraces, "%s block opened here is never closed", f.kind)
			c.res.OK = false
		}
	}

	body := strings.Join(c.out, "\n")
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if c.opts.Header {
		body = strings.Join(headerLines, "\n") + "\n" + body
	}
	c.res.Text = body
}

func (c *converter) processLine(line string, off int) {
	// Continuation of a span opened on an earlier line (multi-line block
	// comment or template literal).
	if sp := c.sh.SpanAt(off); sp != nil && sp.Start < off {
		endInLine := sp.End - off
		if sp.Kind == scanner.SpanString {
			// Template literal body: shielded, emitted verbatim. The
			// opener line already carries the diagnostic.
			c.out = append(c.out, line)
			return
		}
		if endInLine >= len(line) {
			c.emitComment(cleanBlockComment(line))
			return
		}
		c.emitComment(cleanBlockComment(line[:endInLine]))
		c.processLine(line[endInLine:], off+endInLine)
		return
	}

	if strings.TrimSpace(line) == "" {
		c.out = append(c.out, "")
		return
	}
	// Already-converted comment lines pass through untouched.
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		c.out = append(c.out, line)
		return
	}

	code, comments := c.splitComments(line, off)

	// Template literals have no direct Python spelling; flag and comment
	// out rather than emit invalid syntax.
	if c.hasTemplateLiteral(line, off) {
		c.res.diag(c.lineNo, UnsupportedConstruct, "template literal")
		c.flagLine(line)
		return
	}

	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		if len(comments) > 0 {
			c.emitComment(strings.Join(comments, "  "))
		}
		return
	}

	if ns := unsupportedNamespace(trimmed); ns != "" {
		c.res.diag(c.lineNo, UnsupportedConstruct, "call into unsupported %s namespace", strings.TrimRight(ns, ".("))
		c.flagLine(line)
		c.trackBraces(trimmed)
		return
	}

	c.convertCode(trimmed, leadingWS(line), comments)
}

// convertCode runs the header and expression rules over one line of code
// and emits it at the indentation the frame stack dictates.
func (c *converter) convertCode(code, originalWS string, comments []string) {
	// Leading block-close tokens dedent before the line's own emission.
	closerPrefix := ""
	pops := 0
	poppedBare := false
	var lastPopped *frame
	rem := code
	for strings.HasPrefix(rem, "}") {
		if c.ctx.frozen {
			break
		}
		popped, ok := c.ctx.pop()
		if !ok {
			c.res.diag(c.lineNo, UnbalancedBraces, "block close without a matching open")
			c.ctx.freeze()
			break
		}
		pops++
		lastPopped = &popped
		if popped.kind == blockLiteral {
			// Literal braces are valid Python and stay in the output.
			closerPrefix += "}"
		}
		if popped.kind == blockBare {
			poppedBare = true
		}
		rem = strings.TrimSpace(rem[1:])
	}

	emitIndent := c.indentFor(pops, originalWS)
	st := &lineState{line: c.lineNo, inLiteral: c.ctx.inLiteral(), res: c.res}

	var h headerResult
	if keywordAt(rem, "else") {
		h, emitIndent = c.translateElse(rem, lastPopped, emitIndent)
	} else {
		h = translateHeader(rem)
	}

	if h.unsupported != "" {
		c.res.diag(c.lineNo, UnsupportedConstruct, "%s", h.unsupported)
		c.flagLine(rem)
		if h.bareOpen {
			c.ctx.push(blockBare, c.lineNo, false)
		}
		return
	}

	text := rem
	if h.matched {
		text = h.text
	}
	text = applyRules(text, st)
	if st.unsupported {
		// A rule flagged the line (multi-statement callback); pass it
		// through commented and keep the brace accounting balanced.
		c.flagLine(rem)
		c.trackBraces(rem)
		return
	}

	// Account for literal braces that stay open past this line, and for
	// mid-line closes of literals opened earlier.
	opens, closes := unmatchedBraces(rem)
	if h.matched && len(h.opens) > 0 && !h.implicit && opens > 0 {
		opens-- // the header consumed its trailing {
	}
	for i := 0; i < closes && !c.ctx.frozen; i++ {
		if _, ok := c.ctx.pop(); !ok {
			c.res.diag(c.lineNo, UnbalancedBraces, "block close without a matching open")
			c.ctx.freeze()
		}
	}

	emit := closerPrefix + text
	if strings.TrimSpace(emit) == "" || (poppedBare && onlyPunct(emit)) {
		// A bare } (or the tail of a flagged multi-line callback)
		// produces no output line.
		if len(comments) > 0 {
			c.emitComment(strings.Join(comments, "  "))
		}
		return
	}
	if len(comments) > 0 {
		emit += "  " + strings.Join(comments, "  ")
	}
	c.out = append(c.out, emitIndent+emit)

	pushed := false
	for i := 0; i < opens; i++ {
		c.ctx.push(blockLiteral, c.lineNo, false)
		pushed = true
	}
	if h.matched {
		for _, k := range h.opens {
			c.ctx.push(k, c.lineNo, h.implicit)
			pushed = true
		}
	}
	if !pushed {
		c.ctx.closeImplicit()
	}
}

// translateElse handles else/elif continuations, which re-attach to the
// conditional frame they follow instead of opening an unrelated frame.
func (c *converter) translateElse(rem string, lastPopped *frame, emitIndent string) (headerResult, string) {
	attach := -1
	if lastPopped != nil {
		attach = lastPopped.indent
	} else if c.ctx.lastCond != nil {
		attach = c.ctx.lastCond.indent
	}
	if attach >= 0 && !c.ctx.frozen {
		emitIndent = strings.Repeat(" ", attach*c.opts.IndentWidth)
	}

	rest := strings.TrimSpace(rem[len("else"):])
	switch {
	case keywordAt(rest, "if"):
		h := translateCondHeader(rest, "if", blockCond)
		if h.matched {
			h.text = "el" + h.text
			return h, emitIndent
		}
	case rest == "{":
		return headerResult{matched: true, text: "else:", opens: []blockKind{blockCond}}, emitIndent
	case rest == "":
		return headerResult{matched: true, text: "else:", opens: []blockKind{blockCond}, implicit: true}, emitIndent
	case strings.HasPrefix(rest, "{") && strings.HasSuffix(rest, "}"):
		body := strings.TrimSpace(rest[1 : len(rest)-1])
		return headerResult{matched: true, text: "else: " + body}, emitIndent
	}
	// Already target syntax (`else:`) or an unrecognized shape.
	return headerResult{}, emitIndent
}

// indentFor computes the indentation for a line emitted at the current
// stack depth. Top-level lines (empty stack, nothing popped) keep their
// original leading whitespace, which makes conversion a no-op on input that
// is already Python. After an unbalanced close the original whitespace is
// kept as-is: indentation is frozen, not recomputed.
func (c *converter) indentFor(pops int, originalWS string) string {
	if c.ctx.frozen {
		return originalWS
	}
	if pops == 0 && len(c.ctx.stack) == 0 {
		return originalWS
	}
	return strings.Repeat(" ", len(c.ctx.stack)*c.opts.IndentWidth)
}

// emitComment writes a comment-only line at the current depth.
func (c *converter) emitComment(text string) {
	c.out = append(c.out, c.indentFor(0, "")+text)
}

// flagLine passes an untranslatable line through commented, marked so the
// emitted file stays importable and the gap is visible at the exact line.
func (c *converter) flagLine(line string) {
	c.out = append(c.out, c.indentFor(0, "")+marker+" "+strings.TrimSpace(line))
}

// trackBraces keeps the frame stack consistent for lines that are passed
// through flagged: their braces still nest.
func (c *converter) trackBraces(code string) {
	opens, closes := unmatchedBraces(code)
	for i := 0; i < closes && !c.ctx.frozen; i++ {
		if _, ok := c.ctx.pop(); !ok {
			c.ctx.freeze()
			return
		}
	}
	for i := 0; i < opens; i++ {
		c.ctx.push(blockBare, c.lineNo, false)
	}
}

// unmatchedBraces counts braces in code (outside shielded spans) that open
// and stay open past the end of the line, and closes with no opener on the
// line. A brace pair that opens and closes within the line is a no-op for
// subsequent lines.
func unmatchedBraces(code string) (opens, closes int) {
	sc := scanner.New(code)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() || sc.InComment() {
			continue
		}
		switch ch {
		case '{':
			opens++
		case '}':
			if opens > 0 {
				opens--
			} else {
				closes++
			}
		}
	}
	return opens, closes
}

// splitComments separates a line into its code portion and its comment
// texts, converting comment markers to Python form. Inline block comments
// are excised from the code; a line comment or an unclosed block comment
// cuts the code at its start.
func (c *converter) splitComments(line string, off int) (string, []string) {
	end := off + len(line)
	code := line
	var comments []string
	cut := len(line)
	type excision struct{ start, stop int }
	var excisions []excision

	for _, sp := range c.sh.Spans {
		if sp.Start < off || sp.Start >= end {
			continue
		}
		rel := sp.Start - off
		switch sp.Kind {
		case scanner.SpanLineComment:
			comments = append(comments, "#"+strings.TrimSuffix(line[rel+2:], "\r"))
			cut = rel
		case scanner.SpanBlockComment:
			if sp.End <= end {
				inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line[rel:sp.End-off], "/*"), "*/"))
				if inner != "" {
					comments = append(comments, "# "+inner)
				}
				excisions = append(excisions, excision{rel, sp.End - off})
			} else {
				comments = append(comments, cleanBlockComment(line[rel:]))
				cut = rel
			}
		}
		if cut < len(line) {
			break
		}
	}

	if cut < len(code) {
		code = code[:cut]
	}
	// Excise inline block comments back-to-front so offsets stay valid. A
	// filler space is inserted only when the comment glued two tokens.
	for i := len(excisions) - 1; i >= 0; i-- {
		e := excisions[i]
		if e.stop > len(code) {
			continue
		}
		filler := " "
		if (e.start > 0 && code[e.start-1] == ' ') || (e.stop < len(code) && code[e.stop] == ' ') {
			filler = ""
		}
		code = code[:e.start] + filler + code[e.stop:]
	}
	return code, comments
}

// hasTemplateLiteral reports whether a string span starting in this line is
// a backtick template literal.
func (c *converter) hasTemplateLiteral(line string, off int) bool {
	end := off + len(line)
	for _, sp := range c.sh.Spans {
		if sp.Start >= off && sp.Start < end &&
			sp.Kind == scanner.SpanString && c.sh.Src[sp.Start] == '`' {
			return true
		}
	}
	return false
}

// cleanBlockComment turns one line of a block comment into a Python
// comment, stripping the comment markers and any leading asterisk.
func cleanBlockComment(l string) string {
	t := strings.TrimSpace(l)
	t = strings.TrimPrefix(t, "/*")
	t = strings.TrimSuffix(t, "*/")
	t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "*"))
	if t == "" {
		return "#"
	}
	return "# " + t
}

// unsupportedNamespace returns the matched unsupported namespace prefix, or
// "". The match is token-wise: an identifier like "build." does not match
// "ui." just by substring.
func unsupportedNamespace(code string) string {
	for _, ns := range unsupportedNamespaces {
		idx := 0
		for {
			p := strings.Index(code[idx:], ns)
			if p < 0 {
				break
			}
			p += idx
			if (p == 0 || !isIdentByte(code[p-1])) && !scanner.IsInsideString(code, p) {
				return ns
			}
			idx = p + len(ns)
		}
	}
	return ""
}

// onlyPunct reports whether s contains nothing but closing punctuation and
// separators, the tail of a construct whose opener was flagged.
func onlyPunct(s string) bool {
	for _, ch := range s {
		switch ch {
		case ')', ']', '}', ';', ',', ' ', '\t':
		default:
			return false
		}
	}
	return true
}
