package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleScript(t *testing.T) {
	src := "var x = 5;\nif (x > 3) {\n  print(x);\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "x = 5\nif x > 3:\n    print(x)\n", res.Text)
}

func TestDeclarationKeywords(t *testing.T) {
	res := Convert("var a = 1;\nlet b = 2;\nconst c = 3;\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "a = 1\nb = 2\nc = 3\n", res.Text)
}

func TestObjectLiteral(t *testing.T) {
	src := "var vis = {\n  min: 0,\n  max: 1\n};\nMap.addLayer(img, vis);\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "vis = {\n    'min': 0,\n    'max': 1\n}\nMap.addLayer(img, vis)\n", res.Text)
}

func TestInlineObjectLiteral(t *testing.T) {
	res := Convert("Map.addLayer(img, {min: 0, max: 100}, 'layer');\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "Map.addLayer(img, {'min': 0, 'max': 100}, 'layer')\n", res.Text)
}

func TestOperatorsAndLiterals(t *testing.T) {
	src := "if (a === b && !c || d !== null) {\n  x = true;\n  y = false;\n  z = undefined;\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	want := "if a == b and not c or d != None:\n" +
		"    x = True\n" +
		"    y = False\n" +
		"    z = None\n"
	assert.Equal(t, want, res.Text)
}

func TestNewKeywordDropped(t *testing.T) {
	res := Convert("var img = new ee.Image(1);\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "img = ee.Image(1)\n", res.Text)
}

func TestUnspacedBooleanOperators(t *testing.T) {
	src := "if (x>0&&y>0) {\n  z = a||b;\n  w = x&&!y;\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	want := "if x>0 and y>0:\n" +
		"    z = a or b\n" +
		"    w = x and not y\n"
	assert.Equal(t, want, res.Text)
}

func TestTernary(t *testing.T) {
	res := Convert("var label = x > 3 ? 'big' : 'small';\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "label = 'big' if x > 3 else 'small'\n", res.Text)
}

func TestTernaryInCallArguments(t *testing.T) {
	res := Convert("print(x > 0 ? 'pos' : 'neg');\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "print('pos' if x > 0 else 'neg')\n", res.Text)
}

func TestTernaryInArgumentList(t *testing.T) {
	res := Convert("Map.addLayer(img, vis, big ? 'wide' : 'narrow');\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "Map.addLayer(img, vis, 'wide' if big else 'narrow')\n", res.Text)
}

func TestTernaryAsObjectValue(t *testing.T) {
	res := Convert("var vis = {palette: dark ? 'black' : 'white'};\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "vis = {'palette': 'black' if dark else 'white'}\n", res.Text)
}

func TestInlineCallback(t *testing.T) {
	res := Convert("var clipped = col.map(function(img) { return img.clip(geom); });\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "clipped = col.map(lambda img: img.clip(geom))\n", res.Text)
}

func TestMultiLineCallbackFlagged(t *testing.T) {
	src := "var styled = col.map(function(f) {\n  return f.buffer(10);\n});\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnsupportedConstruct, res.Diagnostics[0].Kind)
	assert.Equal(t, 1, res.Diagnostics[0].Line)
	assert.Contains(t, res.Text, marker+" var styled = col.map(function(f) {")
}

func TestFunctionDefinition(t *testing.T) {
	src := "function mask(img) {\n  return img.updateMask(img.gt(0));\n}\nvar out = mask(input);\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	want := "def mask(img):\n    return img.updateMask(img.gt(0))\nout = mask(input)\n"
	assert.Equal(t, want, res.Text)
}

func TestFunctionExpressionAssignment(t *testing.T) {
	src := "var mask = function(img) {\n  return img.selfMask();\n};\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "def mask(img):\n    return img.selfMask()\n", res.Text)
}

func TestCountingForLoop(t *testing.T) {
	src := "for (var i = 0; i < 5; i++) {\n  print(i);\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "for i in range(0, 5):\n    print(i)\n", res.Text)
}

func TestForInLoop(t *testing.T) {
	src := "for (var k in bands) {\n  print(k);\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "for k in bands:\n    print(k)\n", res.Text)
}

func TestElseChain(t *testing.T) {
	src := "if (a) {\n  x();\n} else if (b) {\n  y();\n} else {\n  z();\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	want := "if a:\n    x()\nelif b:\n    y()\nelse:\n    z()\n"
	assert.Equal(t, want, res.Text)
}

func TestImplicitSingleStatementBody(t *testing.T) {
	src := "if (x > 3)\n  print(x);\nprint('done');\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "if x > 3:\n    print(x)\nprint('done')\n", res.Text)
}

func TestOneLineBlock(t *testing.T) {
	res := Convert("if (x) { print(x); }\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "if x: print(x)\n", res.Text)
}

func TestNestedBlocks(t *testing.T) {
	src := "if (a) {\n  if (b) {\n    print(1);\n  }\n  print(2);\n}\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	want := "if a:\n    if b:\n        print(1)\n    print(2)\n"
	assert.Equal(t, want, res.Text)
}

func TestLineComments(t *testing.T) {
	src := "// load the image\nvar img = ee.Image(1); // one band\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "# load the image\nimg = ee.Image(1)  # one band\n", res.Text)
}

func TestBlockComment(t *testing.T) {
	src := "/* first\n   second */\nprint(1);\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Equal(t, "# first\n# second\nprint(1)\n", res.Text)
}

func TestInlineBlockCommentExcised(t *testing.T) {
	res := Convert("var x = add(1, /* skip */ 2);\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "x = add(1,  2)  # skip\n", res.Text)
}

func TestCommentMarkersInsideStrings(t *testing.T) {
	res := Convert("var url = 'https://example.com/a';\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "url = 'https://example.com/a'\n", res.Text)
	assert.Empty(t, res.Diagnostics)
}

func TestOperatorCharsInsideStringsUntouched(t *testing.T) {
	res := Convert("var s = 'a && b ? c : d';\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "s = 'a && b ? c : d'\n", res.Text)
}

func TestUnsupportedNamespace(t *testing.T) {
	src := "var x = 1;\nui.Panel([ui.Label('hi')]);\nprint(x);\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnsupportedConstruct, res.Diagnostics[0].Kind)
	assert.Equal(t, 2, res.Diagnostics[0].Line)
	assert.Contains(t, res.Diagnostics[0].Msg, "ui")
	want := "x = 1\n" + marker + " ui.Panel([ui.Label('hi')]);\nprint(x)\n"
	assert.Equal(t, want, res.Text)
}

func TestExportsAndRequireFlagged(t *testing.T) {
	src := "var tools = require('users/x/repo:tools');\nexports.mask = mask;\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	require.Len(t, res.Diagnostics, 2)
	assert.True(t, strings.HasPrefix(res.Text, marker))
}

func TestNamespaceMatchIsTokenWise(t *testing.T) {
	// An identifier merely ending in "ui" must not trip the ui. check.
	res := Convert("menui.draw();\nvar b = builder.Chartx;\n", Options{})
	assert.Empty(t, res.Diagnostics)
}

func TestUnterminatedString(t *testing.T) {
	src := "var s = 'abc\nprint(1);\n"
	res := Convert(src, Options{})
	assert.False(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnterminatedLiteral, res.Diagnostics[0].Kind)
	assert.Contains(t, res.Diagnostics[0].Msg, "opened at line 1")
	// The truncated region is passed through untouched.
	assert.Contains(t, res.Text, "var s = 'abc")
}

func TestUnterminatedBlockComment(t *testing.T) {
	res := Convert("print(1);\n/* never closed\n", Options{})
	assert.False(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnterminatedLiteral, res.Diagnostics[0].Kind)
	assert.Contains(t, res.Diagnostics[0].Msg, "block comment")
}

func TestUnbalancedCloseFreezesIndent(t *testing.T) {
	src := "print(1);\n}\nprint(2);\n"
	res := Convert(src, Options{})
	assert.True(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnbalancedBraces, res.Diagnostics[0].Kind)
	assert.Equal(t, 2, res.Diagnostics[0].Line)
	assert.Contains(t, res.Text, "print(1)\n")
	assert.Contains(t, res.Text, "print(2)\n")
}

func TestUnclosedBlockAtEOF(t *testing.T) {
	res := Convert("if (x) {\n  print(1);\n", Options{})
	assert.False(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnbalancedBraces, res.Diagnostics[0].Kind)
	assert.Equal(t, 1, res.Diagnostics[0].Line)
}

func TestTemplateLiteralFlagged(t *testing.T) {
	res := Convert("var s = `count: ${n}`;\n", Options{})
	assert.True(t, res.OK)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnsupportedConstruct, res.Diagnostics[0].Kind)
	assert.True(t, strings.HasPrefix(res.Text, marker))
}

func TestHeaderPreamble(t *testing.T) {
	res := Convert("print(1);\n", Options{Header: true})
	require.True(t, res.OK)
	assert.Equal(t, "import ee\nimport geemap\n\nMap = geemap.Map()\n\nprint(1)\n", res.Text)
}

func TestIndentWidthOption(t *testing.T) {
	res := Convert("if (x) {\n  print(x);\n}\n", Options{IndentWidth: 2})
	require.True(t, res.OK)
	assert.Equal(t, "if x:\n  print(x)\n", res.Text)
}

func TestBlankLinesPreserved(t *testing.T) {
	res := Convert("var a = 1;\n\nvar b = 2;\n", Options{})
	require.True(t, res.OK)
	assert.Equal(t, "a = 1\n\nb = 2\n", res.Text)
}

// Converting already-converted output must be a no-op, so re-running the
// tool over a mixed tree is safe.
func TestIdempotence(t *testing.T) {
	sources := []string{
		"var x = 5;\nif (x > 3) {\n  print(x);\n}\n",
		"var vis = {\n  min: 0,\n  max: 1\n};\nMap.addLayer(img, vis);\n",
		"if (a) {\n  x();\n} else if (b) {\n  y();\n} else {\n  z();\n}\n",
		"function mask(img) {\n  return img.updateMask(img.gt(0));\n}\n",
		"for (var i = 0; i < 5; i++) {\n  print(i);\n}\n",
		"var clipped = col.map(function(img) { return img.clip(geom); });\n",
		"// comment\nvar url = 'https://example.com';\n",
		"print(x > 0 ? 'pos' : 'neg');\n",
		"if (x>0&&y>0) {\n  z = a||b;\n}\n",
	}
	for _, src := range sources {
		first := Convert(src, Options{})
		require.True(t, first.OK, "source: %q", src)
		second := Convert(first.Text, Options{})
		require.True(t, second.OK, "converted: %q", first.Text)
		assert.Equal(t, first.Text, second.Text, "source: %q", src)
	}
}

// Every emitted file keeps its braces balanced even when individual lines
// are flagged, so downstream tooling never sees a torn literal.
func TestFlaggedLinesKeepBraceBalance(t *testing.T) {
	src := "var styled = col.map(function(f) {\n  return f.buffer(10);\n});\nprint('after');\n"
	res := Convert(src, Options{})
	require.True(t, res.OK)
	assert.Contains(t, res.Text, "print('after')\n")
	// The statement after the flagged callback is back at top level.
	assert.True(t, strings.HasSuffix(res.Text, "print('after')\n"))
}
