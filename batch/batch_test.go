package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestConvertTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.js":        "var x = 1;\n",
		"sub/b.js":    "print('b');\n",
		"sub/note.md": "readme\n",
	})

	report, err := ConvertTree(context.Background(), src, dst, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Converted)
	assert.Equal(t, 0, report.Failed)
	assert.True(t, report.OK())

	data, err := os.ReadFile(filepath.Join(dst, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data))

	data, err = os.ReadFile(filepath.Join(dst, "sub", "b.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('b')\n", string(data))

	// Non-matching files are not copied by default.
	_, err = os.Stat(filepath.Join(dst, "sub", "note.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestFailedFileDoesNotStopOthers(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"good1.js": "var a = 1;\n",
		"bad.js":   "var s = 'never terminated\n",
		"good2.js": "var b = 2;\n",
	})

	report, err := ConvertTree(context.Background(), src, dst, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Converted)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.OK())

	// The two good files are written; the failed one is not.
	_, err = os.Stat(filepath.Join(dst, "good1.py"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dst, "good2.py"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dst, "bad.py"))
	assert.True(t, os.IsNotExist(err))

	entry := report.Find("bad.js")
	require.NotNil(t, entry)
	assert.Equal(t, StatusFailed, entry.Status)
	require.NotEmpty(t, entry.Diagnostics)
}

func TestManifestWritten(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"a.js": "var x = 1;\n"})

	report, err := ConvertTree(context.Background(), src, dst, Options{Manifest: "report.yaml"})
	require.NoError(t, err)
	require.True(t, report.OK())

	data, err := os.ReadFile(filepath.Join(dst, "report.yaml"))
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Converted)
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, "a.js", decoded.Entries[0].Source)
	assert.Equal(t, "a.py", decoded.Entries[0].Output)
}

func TestCopyOther(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.js":   "var x = 1;\n",
		"viz.md": "notes\n",
	})

	report, err := ConvertTree(context.Background(), src, dst, Options{CopyOther: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)
	assert.Equal(t, 1, report.Copied)

	data, err := os.ReadFile(filepath.Join(dst, "viz.md"))
	require.NoError(t, err)
	assert.Equal(t, "notes\n", string(data))
}

func TestDeterministicEntryOrder(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"c.js": "var c = 1;\n",
		"a.js": "var a = 1;\n",
		"b.js": "var b = 1;\n",
	})

	report, err := ConvertTree(context.Background(), src, dst, Options{Jobs: 3})
	require.NoError(t, err)
	require.Len(t, report.Entries, 3)
	assert.Equal(t, "a.js", report.Entries[0].Source)
	assert.Equal(t, "b.js", report.Entries[1].Source)
	assert.Equal(t, "c.js", report.Entries[2].Source)
}

func TestCaseInsensitiveExtension(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"A.JS": "var x = 1;\n"})

	report, err := ConvertTree(context.Background(), src, dst, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)
	_, err = os.Stat(filepath.Join(dst, "A.py"))
	assert.NoError(t, err)
}

func TestMissingSourceRoot(t *testing.T) {
	_, err := ConvertTree(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir(), Options{})
	assert.Error(t, err)
}
