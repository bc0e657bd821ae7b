package notebook

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// runnerSource is the in-process cell runner handed to the Python
// interpreter. Cells share one namespace, like a live kernel session.
//
//go:embed runner.py
var runnerSource string

// ExecOptions configures headless execution.
type ExecOptions struct {
	// Python is the interpreter command (default python3).
	Python string
	// CellTimeout bounds each cell's run time (default 2m).
	CellTimeout time.Duration
	// NotebookTimeout bounds the whole notebook's run time; on expiry
	// the interpreter is killed and unfinished cells are marked
	// cancelled. Zero means no notebook-level bound.
	NotebookTimeout time.Duration
	// StopOnError stops after the first failing cell; the remaining
	// cells are marked cancelled.
	StopOnError bool
}

func (o *ExecOptions) normalize() {
	if o.Python == "" {
		o.Python = "python3"
	}
	if o.CellTimeout <= 0 {
		o.CellTimeout = 2 * time.Minute
	}
}

type cellRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type cellResponse struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Stdout    string   `json:"stdout"`
	Stderr    string   `json:"stderr"`
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// Execute runs the notebook's code cells in order against a fresh Python
// subprocess, recording stdout, stderr, and errors as cell outputs. A cell
// exceeding the timeout kills the interpreter; it and every later cell are
// marked cancelled. The returned error covers process-level failures, not
// in-cell Python errors.
func Execute(ctx context.Context, doc *Document, opts ExecOptions) error {
	opts.normalize()
	cells := doc.CodeCells()
	if len(cells) == 0 {
		return nil
	}

	if opts.NotebookTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.NotebookTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, opts.Python, "-u", "-c", runnerSource)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", opts.Python, err)
	}
	defer func() {
		stdin.Close()
		cmd.Wait()
	}()

	// done unblocks the reader when a timeout or cancellation abandons
	// the receive loop; otherwise a response arriving after the last
	// receive would leave the goroutine blocked on the send forever.
	done := make(chan struct{})
	defer close(done)

	responses := make(chan cellResponse)
	go func() {
		defer close(responses)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			var resp cellResponse
			if json.Unmarshal(sc.Bytes(), &resp) == nil {
				select {
				case responses <- resp:
				case <-done:
					return
				}
			}
		}
	}()

	enc := json.NewEncoder(stdin)
	count := 0
	for i, cell := range cells {
		count++
		if err := enc.Encode(cellRequest{ID: cell.ID, Code: cell.Text()}); err != nil {
			markCancelled(cells[i:], "interpreter exited")
			return fmt.Errorf("sending cell %d: %w", count, err)
		}

		timer := time.NewTimer(opts.CellTimeout)
		select {
		case resp, ok := <-responses:
			timer.Stop()
			if !ok {
				markCancelled(cells[i:], "interpreter exited")
				return fmt.Errorf("interpreter exited before cell %d finished", count)
			}
			applyResponse(cell, count, resp)
			if resp.Status == "error" {
				slog.Warn("cell failed", "cell", count, "ename", resp.Ename)
				if opts.StopOnError {
					markCancelled(cells[i+1:], "stopped after failing cell")
					return nil
				}
			}
		case <-timer.C:
			cmd.Process.Kill()
			markCancelled(cells[i:], fmt.Sprintf("cancelled after %s timeout", opts.CellTimeout))
			return fmt.Errorf("cell %d exceeded timeout %s", count, opts.CellTimeout)
		case <-ctx.Done():
			timer.Stop()
			cmd.Process.Kill()
			markCancelled(cells[i:], "execution cancelled")
			return ctx.Err()
		}
	}
	return nil
}

// applyResponse records one cell's captured outputs.
func applyResponse(cell *Cell, count int, resp cellResponse) {
	n := count
	cell.ExecutionCount = &n
	cell.Outputs = nil
	if resp.Stdout != "" {
		cell.Outputs = append(cell.Outputs, Output{
			Type: "stream", Name: "stdout", Text: sourceLines(resp.Stdout),
		})
	}
	if resp.Stderr != "" {
		cell.Outputs = append(cell.Outputs, Output{
			Type: "stream", Name: "stderr", Text: sourceLines(resp.Stderr),
		})
	}
	if resp.Status == "error" {
		cell.Outputs = append(cell.Outputs, Output{
			Type:      "error",
			Ename:     resp.Ename,
			Evalue:    resp.Evalue,
			Traceback: resp.Traceback,
		})
	}
}

// markCancelled records a cancellation marker on every cell that never got
// to run (or was killed mid-run).
func markCancelled(cells []*Cell, reason string) {
	for _, cell := range cells {
		cell.Outputs = []Output{{
			Type:   "error",
			Ename:  "Cancelled",
			Evalue: reason,
		}}
	}
}

// ExecuteFile runs the notebook at path in place, writing captured outputs
// back into the file.
func ExecuteFile(ctx context.Context, path string, opts ExecOptions) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	execErr := Execute(ctx, doc, opts)
	if saveErr := doc.Save(path); saveErr != nil {
		return saveErr
	}
	return execErr
}

// ExecuteDir runs every .ipynb under dir, at most jobs notebooks at a time.
// Each notebook gets its own interpreter, so failures stay isolated.
func ExecuteDir(ctx context.Context, dir string, jobs int, opts ExecOptions) error {
	if jobs < 1 {
		jobs = 1
	}
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".ipynb") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, path := range paths {
		g.Go(func() error {
			if err := ExecuteFile(ctx, path, opts); err != nil {
				slog.Warn("notebook execution failed", "path", path, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
