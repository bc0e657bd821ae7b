package notebook

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// RenderOptions configures script-to-notebook rendering.
type RenderOptions struct {
	// PromoteMarkdown turns comment-only segments into markdown cells.
	PromoteMarkdown bool
	// KernelName overrides the kernelspec name from the template.
	KernelName string
	// TemplatePath is an .ipynb file whose kernel and format metadata
	// seed the rendered notebook. Empty uses the built-in template.
	TemplatePath string
}

// Render segments a Python script into notebook cells. Cells split at blank
// lines, but only at top level: a blank line inside an indented block keeps
// the block in one cell.
func Render(pySrc string, opts RenderOptions) (*Document, error) {
	doc, err := loadTemplate(opts.TemplatePath, opts.KernelName)
	if err != nil {
		return nil, err
	}

	for _, seg := range segment(pySrc) {
		text := strings.Join(seg, "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if opts.PromoteMarkdown && commentOnly(seg) {
			doc.Cells = append(doc.Cells, newCell(CellMarkdown, stripComments(seg)))
			continue
		}
		doc.Cells = append(doc.Cells, newCell(CellCode, text))
	}
	return doc, nil
}

// segment splits script lines into cell groups. A group ends at a run of
// blank lines followed by a line at column zero.
func segment(src string) [][]string {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	var groups [][]string
	var cur []string
	blank := 0

	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			continue
		}
		indented := line[0] == ' ' || line[0] == '\t'
		if blank > 0 && !indented {
			flush()
		} else if blank > 0 {
			// Blank line inside a block stays in the cell.
			for i := 0; i < blank; i++ {
				cur = append(cur, "")
			}
		}
		blank = 0
		cur = append(cur, line)
	}
	flush()
	return groups
}

// commentOnly reports whether every line of the group is a comment.
func commentOnly(lines []string) bool {
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" && !strings.HasPrefix(t, "#") {
			return false
		}
	}
	return true
}

// stripComments converts a comment block into markdown text.
func stripComments(lines []string) string {
	var out []string
	for _, l := range lines {
		t := strings.TrimSpace(l)
		t = strings.TrimPrefix(t, "#")
		t = strings.TrimPrefix(t, " ")
		out = append(out, t)
	}
	return strings.Join(out, "\n")
}

// RenderFile converts one .py file into a sibling-path .ipynb.
func RenderFile(srcPath, dstPath string, opts RenderOptions) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	doc, err := Render(string(data), opts)
	if err != nil {
		return err
	}
	if err := doc.Save(dstPath); err != nil {
		return err
	}
	slog.Debug("rendered notebook", "source", srcPath, "output", dstPath)
	return nil
}

// RenderDir renders every .py file under srcDir into a mirrored .ipynb
// tree under dstDir.
func RenderDir(srcDir, dstDir string, opts RenderOptions) (int, error) {
	count := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dstDir, rel), 0o755)
		}
		if !strings.EqualFold(filepath.Ext(rel), ".py") {
			return nil
		}
		dst := filepath.Join(dstDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".ipynb")
		if err := RenderFile(path, dst, opts); err != nil {
			return fmt.Errorf("rendering %s: %w", rel, err)
		}
		count++
		return nil
	})
	return count, err
}
