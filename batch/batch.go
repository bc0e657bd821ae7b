// Package batch converts whole directory trees of dialect scripts,
// mirroring the source layout under a destination root. Files are converted
// in parallel with full per-file isolation: one malformed script never
// stops the rest of the tree.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gee-community/geeconvert/convert"
)

// Options configures a tree conversion.
type Options struct {
	// Extensions lists the source file extensions to convert
	// (default .js). Matching is case-insensitive.
	Extensions []string
	// Jobs is the number of files converted concurrently (default 4).
	Jobs int
	// CopyOther copies non-matching files into the mirror unchanged.
	// When false they are left out of the destination tree.
	CopyOther bool
	// Manifest is the report filename written into the destination root.
	// Empty disables the manifest.
	Manifest string

	// IndentWidth and Header are passed through to each conversion.
	IndentWidth int
	Header      bool
}

func (o *Options) normalize() {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".js"}
	}
	if o.Jobs < 1 {
		o.Jobs = 4
	}
}

func (o *Options) matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range o.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ConvertTree converts every matching file under srcRoot into a mirrored
// tree under dstRoot. The returned Report lists the outcome per file; the
// error is non-nil only for tree-level failures (unreadable root,
// unwritable destination), never for an individual file.
func ConvertTree(ctx context.Context, srcRoot, dstRoot string, opts Options) (*Report, error) {
	opts.normalize()

	info, err := os.Stat(srcRoot)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", srcRoot)
	}

	var files []string
	err = filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(srcRoot, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			// Mirror the directory layout up front so workers never
			// race on MkdirAll.
			return os.MkdirAll(filepath.Join(dstRoot, rel), 0o755)
		}
		if opts.matches(d.Name()) || opts.CopyOther {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", srcRoot, err)
	}

	report := &Report{Source: srcRoot, Destination: dstRoot}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for _, rel := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry := processFile(srcRoot, dstRoot, rel, opts)
			report.add(entry)
			logEntry(rel, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.finish()
	if opts.Manifest != "" {
		if err := report.Write(filepath.Join(dstRoot, opts.Manifest)); err != nil {
			return report, fmt.Errorf("writing manifest: %w", err)
		}
	}
	return report, nil
}

// processFile converts or copies one file. Panics are contained here so a
// pathological input cannot take down the whole run.
func processFile(srcRoot, dstRoot, rel string, opts Options) (entry Entry) {
	entry = Entry{Source: rel}
	defer func() {
		if r := recover(); r != nil {
			entry.Status = StatusFailed
			entry.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	data, err := os.ReadFile(filepath.Join(srcRoot, rel))
	if err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
		return entry
	}

	if !opts.matches(rel) {
		dst := filepath.Join(dstRoot, rel)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			entry.Status = StatusFailed
			entry.Error = err.Error()
			return entry
		}
		entry.Status = StatusCopied
		entry.Output = rel
		return entry
	}

	res := convert.Convert(string(data), convert.Options{
		IndentWidth: opts.IndentWidth,
		Header:      opts.Header,
	})
	entry.Diagnostics = res.Diagnostics
	if !res.OK {
		entry.Status = StatusFailed
		entry.Error = "conversion produced incomplete output"
		return entry
	}

	outRel := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".py"
	if err := os.WriteFile(filepath.Join(dstRoot, outRel), []byte(res.Text), 0o644); err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
		return entry
	}
	entry.Status = StatusConverted
	entry.Output = outRel
	return entry
}

func logEntry(rel string, e Entry) {
	switch e.Status {
	case StatusFailed:
		slog.Warn("conversion failed", "file", rel, "error", e.Error)
	case StatusConverted:
		if len(e.Diagnostics) > 0 {
			slog.Info("converted with diagnostics", "file", rel, "count", len(e.Diagnostics))
		} else {
			slog.Debug("converted", "file", rel)
		}
	case StatusCopied:
		slog.Debug("copied", "file", rel)
	}
}

// sortEntries orders a report deterministically regardless of worker
// scheduling.
func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Source, b.Source)
	})
}
