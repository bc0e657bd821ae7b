package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeScanner_BasicIteration(t *testing.T) {
	sc := New("abc")
	ch, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, byte('a'), ch)
	assert.Equal(t, 0, sc.Pos())

	ch, ok = sc.Next()
	require.True(t, ok)
	assert.Equal(t, byte('b'), ch)

	ch, ok = sc.Next()
	require.True(t, ok)
	assert.Equal(t, byte('c'), ch)

	_, ok = sc.Next()
	assert.False(t, ok)
}

func TestCodeScanner_LineTracking(t *testing.T) {
	sc := New("a\nb\nc")
	sc.Next() // a
	assert.Equal(t, 1, sc.Line())
	sc.Next() // \n
	assert.Equal(t, 2, sc.Line())
	sc.Next() // b
	assert.Equal(t, 2, sc.Line())
}

func TestCodeScanner_DoubleQuotedString(t *testing.T) {
	sc := New(`x = "hello" + y`)
	var codeBytes, strBytes []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() {
			strBytes = append(strBytes, ch)
		} else {
			codeBytes = append(codeBytes, ch)
		}
	}
	assert.Equal(t, `x =  + y`, string(codeBytes))
	assert.Equal(t, `"hello"`, string(strBytes))
}

func TestCodeScanner_EscapedQuotes(t *testing.T) {
	// "he\"llo": the escaped quote should not end the string
	sc := New(`"he\"llo" + x`)
	var strBytes []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() {
			strBytes = append(strBytes, ch)
		}
	}
	assert.Equal(t, `"he\"llo"`, string(strBytes))
}

func TestCodeScanner_URLInsideStringIsNotComment(t *testing.T) {
	sc := New(`var url = 'https://example.com/a';`)
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		assert.False(t, sc.InComment())
	}
	assert.False(t, sc.Unterminated())
}

func TestCodeScanner_LineComment(t *testing.T) {
	sc := New("a = 1 // trailing\nb = 2")
	var comment []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InComment() {
			comment = append(comment, ch)
		}
	}
	// The newline ends the comment but is not part of it.
	assert.Equal(t, "// trailing", string(comment))
}

func TestCodeScanner_BlockCommentSpansLines(t *testing.T) {
	sc := New("a\n/* one\ntwo */\nb")
	var comment []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InComment() {
			comment = append(comment, ch)
		}
	}
	assert.Equal(t, "/* one\ntwo */", string(comment))
	assert.False(t, sc.Unterminated())
}

func TestCodeScanner_SlashStarSlashDoesNotSelfClose(t *testing.T) {
	sc := New("/*/ still a comment")
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
	}
	assert.True(t, sc.Unterminated())
}

func TestCodeScanner_CommentMarkerInsideTemplate(t *testing.T) {
	sc := New("x = `a // b` + 1")
	var code []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InCode() {
			code = append(code, ch)
		}
	}
	assert.Equal(t, "x =  + 1", string(code))
}

func TestFindTopLevel_SkipsStringsAndBrackets(t *testing.T) {
	line := `f("a?b", x) ? g : h`
	pos := FindTopLevel(line, func(ch byte, pos int, src string) bool {
		return ch == '?'
	})
	require.GreaterOrEqual(t, pos, 0)
	assert.Equal(t, byte('?'), line[pos])
	assert.Equal(t, 12, pos)
}

func TestFindMatchingClose(t *testing.T) {
	line := `for (var i = 0; i < f(n); i++) {`
	end := FindMatchingClose(line, 4, '(', ')')
	assert.Equal(t, 29, end)
}

func TestIsInsideString(t *testing.T) {
	line := `x = "a//b" + 1`
	assert.True(t, IsInsideString(line, 6))
	assert.False(t, IsInsideString(line, 1))
	assert.False(t, IsInsideString(line, 12))
}

func TestShield_Spans(t *testing.T) {
	sh := Shield(`var s = 'hi'; // done`)
	require.Nil(t, sh.Err)
	require.Len(t, sh.Spans, 2)
	assert.Equal(t, SpanString, sh.Spans[0].Kind)
	assert.Equal(t, `'hi'`, sh.Src[sh.Spans[0].Start:sh.Spans[0].End])
	assert.Equal(t, SpanLineComment, sh.Spans[1].Kind)
	assert.Equal(t, `// done`, sh.Src[sh.Spans[1].Start:sh.Spans[1].End])
}

func TestShield_UnterminatedString(t *testing.T) {
	sh := Shield("a = 1\nb = 'oops\nc = 2\n")
	require.NotNil(t, sh.Err)
	require.NotNil(t, sh.Truncated)
	// Everything from the opening quote to EOF stays shielded.
	assert.Equal(t, len(sh.Src), sh.Truncated.End)
	assert.Contains(t, sh.Err.Error(), "line 2")
}

func TestShield_UnterminatedBlockComment(t *testing.T) {
	sh := Shield("a = 1\n/* never closed\nb = 2\n")
	require.NotNil(t, sh.Err)
	assert.Contains(t, sh.Err.Error(), "block comment")
	assert.Contains(t, sh.Err.Error(), "line 2")
}

func TestShield_InShielded(t *testing.T) {
	src := `print('a'); /* c */ x = 1`
	sh := Shield(src)
	require.Nil(t, sh.Err)
	assert.True(t, sh.InShielded(7))   // inside 'a'
	assert.False(t, sh.InShielded(0))  // p of print
	assert.True(t, sh.InShielded(14))  // inside block comment
	assert.False(t, sh.InShielded(22)) // x
}
