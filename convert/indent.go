package convert

// blockKind classifies an open block frame.
type blockKind byte

const (
	blockCond blockKind = iota
	blockLoop
	blockFunc
	blockBare
	// blockLiteral tracks an object/array literal brace that stays in the
	// output (valid Python), contributing indentation but no colon header.
	blockLiteral
)

func (k blockKind) String() string {
	switch k {
	case blockCond:
		return "conditional"
	case blockLoop:
		return "loop"
	case blockFunc:
		return "function"
	case blockBare:
		return "block"
	case blockLiteral:
		return "literal"
	}
	return "unknown"
}

// frame is one entry in the indentation stack: an open block between a {
// and its matching }, or an implicit single-statement body.
type frame struct {
	kind   blockKind
	indent int // nesting depth at which the block header was emitted
	// implicit frames have no closing brace: they close automatically
	// after the next emitted statement.
	implicit bool
	// line the frame was opened at, for unclosed-block reporting.
	line int
}

// context is the conversion context for one file: an explicit stack of open
// block frames. The stack must be empty at end of file for well-formed
// input.
type context struct {
	stack  []frame
	frozen bool
	// lastCond is the most recently closed conditional frame, so a
	// dangling else/elif can re-attach to it instead of opening an
	// unrelated frame.
	lastCond *frame
}

func (c *context) depth() int { return len(c.stack) }

func (c *context) push(kind blockKind, line int, implicit bool) {
	if c.frozen {
		return
	}
	c.stack = append(c.stack, frame{kind: kind, indent: len(c.stack), implicit: implicit, line: line})
}

// pop removes the top frame and returns it. Returns false when the stack is
// empty: a block-close with no matching open. The caller freezes the
// context at the last known-good level.
func (c *context) pop() (frame, bool) {
	if c.frozen || len(c.stack) == 0 {
		return frame{}, false
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	if top.kind == blockCond {
		cond := top
		c.lastCond = &cond
	}
	return top, true
}

func (c *context) top() *frame {
	if len(c.stack) == 0 {
		return nil
	}
	return &c.stack[len(c.stack)-1]
}

// closeImplicit pops implicit single-statement frames after a statement
// line has been emitted. Nested one-line bodies cascade.
func (c *context) closeImplicit() {
	for {
		top := c.top()
		if top == nil || !top.implicit {
			return
		}
		c.pop()
	}
}

// inLiteral reports whether the innermost frame is an object/array literal
// continuation.
func (c *context) inLiteral() bool {
	top := c.top()
	return top != nil && top.kind == blockLiteral
}

// freeze stops all stack updates after an unbalanced close; indentation
// stays at the last known-good level for the rest of the file.
func (c *context) freeze() { c.frozen = true }
