// Package notebook renders converted Python scripts into Jupyter notebooks
// and executes them headlessly, capturing per-cell outputs.
package notebook

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// defaultTemplate is the notebook skeleton used when no template file is
// given: kernel and format metadata with an empty cell list.
//
//go:embed template.ipynb
var defaultTemplate []byte

const (
	CellCode     = "code"
	CellMarkdown = "markdown"
)

// Document is a Jupyter notebook (nbformat 4.5).
type Document struct {
	Cells         []*Cell  `json:"cells"`
	Metadata      Metadata `json:"metadata"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
}

// Metadata is the notebook-level metadata block.
type Metadata struct {
	KernelSpec   KernelSpec   `json:"kernelspec"`
	LanguageInfo LanguageInfo `json:"language_info"`
}

type KernelSpec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

type LanguageInfo struct {
	Name string `json:"name"`
}

// Cell is one notebook cell. Source lines keep their trailing newlines, as
// the format requires.
type Cell struct {
	ID             string         `json:"id"`
	Type           string         `json:"cell_type"`
	Metadata       map[string]any `json:"metadata"`
	Source         []string       `json:"source"`
	Outputs        []Output       `json:"outputs,omitempty"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
}

// MarshalJSON emits the exact key set nbformat mandates per cell type: code
// cells always carry outputs and execution_count (null when never run),
// markdown cells never do.
func (c *Cell) MarshalJSON() ([]byte, error) {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	m := map[string]any{
		"id":        c.ID,
		"cell_type": c.Type,
		"metadata":  meta,
		"source":    c.Source,
	}
	if c.Type == CellCode {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []Output{}
		}
		m["outputs"] = outputs
		m["execution_count"] = c.ExecutionCount
	}
	return json.Marshal(m)
}

// Text returns the cell source as one string.
func (c *Cell) Text() string {
	return strings.Join(c.Source, "")
}

// Output is one cell output: a stream chunk, an error, or rich display
// data. Data and Metadata are carried so loading and re-saving a notebook
// produced elsewhere keeps its display outputs intact.
type Output struct {
	Type           string         `json:"output_type"`
	Name           string         `json:"name,omitempty"`
	Text           []string       `json:"text,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
	Ename          string         `json:"ename,omitempty"`
	Evalue         string         `json:"evalue,omitempty"`
	Traceback      []string       `json:"traceback,omitempty"`
}

// newCell builds a cell from source text, assigning the random id nbformat
// 4.5 requires.
func newCell(cellType, text string) *Cell {
	return &Cell{
		ID:     uuid.NewString(),
		Type:   cellType,
		Source: sourceLines(text),
	}
}

// sourceLines splits text into nbformat source lines, each keeping its
// newline except the last.
func sourceLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return []string{}
	}
	lines := strings.SplitAfter(text, "\n")
	return lines
}

// loadTemplate builds the base document for rendering: the template's
// metadata and format version, with the cell list cleared.
func loadTemplate(templatePath, kernelName string) (*Document, error) {
	data := defaultTemplate
	if templatePath != "" {
		b, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("notebook template: %w", err)
		}
		data = b
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("notebook template: %w", err)
	}
	doc.Cells = nil
	if kernelName != "" {
		doc.Metadata.KernelSpec.Name = kernelName
	}
	return &doc, nil
}

// Bytes serializes the notebook as indented JSON.
func (d *Document) Bytes() ([]byte, error) {
	return json.MarshalIndent(d, "", " ")
}

// Save writes the notebook to path.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load reads a notebook from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CodeCells returns the code cells in document order.
func (d *Document) CodeCells() []*Cell {
	var cells []*Cell
	for _, c := range d.Cells {
		if c.Type == CellCode {
			cells = append(cells, c)
		}
	}
	return cells
}
