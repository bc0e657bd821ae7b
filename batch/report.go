package batch

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gee-community/geeconvert/convert"
)

// Status is the per-file outcome of a tree conversion.
type Status string

const (
	StatusConverted Status = "converted"
	StatusCopied    Status = "copied"
	StatusFailed    Status = "failed"
)

// Entry records the outcome for one source file. Paths are relative to the
// tree roots.
type Entry struct {
	Source      string               `yaml:"source"`
	Output      string               `yaml:"output,omitempty"`
	Status      Status               `yaml:"status"`
	Diagnostics []convert.Diagnostic `yaml:"diagnostics,omitempty"`
	Error       string               `yaml:"error,omitempty"`
}

// Report is the aggregate outcome of a tree conversion, written as a YAML
// manifest into the destination root.
type Report struct {
	Source      string  `yaml:"source"`
	Destination string  `yaml:"destination"`
	Converted   int     `yaml:"converted"`
	Copied      int     `yaml:"copied,omitempty"`
	Failed      int     `yaml:"failed"`
	Entries     []Entry `yaml:"entries"`

	mu sync.Mutex
}

func (r *Report) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
	switch e.Status {
	case StatusConverted:
		r.Converted++
	case StatusCopied:
		r.Copied++
	case StatusFailed:
		r.Failed++
	}
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sortEntries(r.Entries)
}

// OK reports whether every file converted cleanly.
func (r *Report) OK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed == 0
}

// Write serializes the report to path as YAML.
func (r *Report) Write(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the entry for a source path, or nil.
func (r *Report) Find(source string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Entries {
		if r.Entries[i].Source == source {
			return &r.Entries[i]
		}
	}
	return nil
}
