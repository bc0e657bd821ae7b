// Package cmd wires the geeconvert command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/gee-community/geeconvert/batch"
	"github.com/gee-community/geeconvert/config"
	"github.com/gee-community/geeconvert/convert"
	"github.com/gee-community/geeconvert/notebook"
)

// Execute runs the geeconvert CLI with the given version string.
func Execute(version string) {
	cmd := &cli.Command{
		Name:                   "geeconvert",
		Usage:                  "Convert Earth Engine JavaScript scripts to Python",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (default: geeconvert.yaml in the working directory)",
			},
		},
		// Allow `geeconvert script.js` as shorthand for `geeconvert convert script.js`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 && strings.HasSuffix(cmd.Args().First(), ".js") {
				return convertOne(cmd, cmd.Args().First(), "")
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "Convert a single .js file to Python",
				ArgsUsage: "<file.js> [output.py]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "indent",
						Aliases: []string{"i"},
						Usage:   "Spaces per indentation level",
					},
					&cli.BoolFlag{
						Name:  "no-header",
						Usage: "Skip the import preamble",
					},
					&cli.BoolFlag{
						Name:  "stdout",
						Usage: "Write the result to stdout instead of a file",
					},
				},
				Action: convertAction,
			},
			{
				Name:      "tree",
				Usage:     "Convert a directory tree, mirroring its layout",
				ArgsUsage: "<src-dir> <dst-dir>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "jobs",
						Aliases: []string{"j"},
						Usage:   "Files converted in parallel",
					},
					&cli.BoolFlag{
						Name:  "copy-other",
						Usage: "Copy non-script files into the mirror",
					},
					&cli.BoolFlag{
						Name:    "no-color",
						Aliases: []string{"C"},
						Usage:   "Disable ANSI color output",
					},
				},
				Action: treeAction,
			},
			{
				Name:      "notebook",
				Usage:     "Render converted .py files into Jupyter notebooks",
				ArgsUsage: "<file.py | directory> [output]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-markdown",
						Usage: "Keep comment blocks as code cells",
					},
					&cli.StringFlag{
						Name:    "template",
						Aliases: []string{"t"},
						Usage:   "Notebook template providing kernel metadata",
					},
				},
				Action: notebookAction,
			},
			{
				Name:      "run",
				Usage:     "Execute notebooks headlessly, capturing cell outputs",
				ArgsUsage: "<file.ipynb | directory>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "jobs",
						Aliases: []string{"j"},
						Usage:   "Notebooks executed in parallel",
					},
					&cli.BoolFlag{
						Name:  "stop-on-error",
						Usage: "Stop a notebook after its first failing cell",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-notebook execution timeout",
					},
				},
				Action: runAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration and installs the logger it selects.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

func setupLogging(lc config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func convertAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: geeconvert convert <file.js> [output.py]")
	}
	output := ""
	if cmd.NArg() > 1 {
		output = cmd.Args().Get(1)
	}
	return convertOne(cmd, cmd.Args().First(), output)
}

func convertOne(cmd *cli.Command, input, output string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	opts := convert.Options{
		IndentWidth: cfg.Convert.IndentWidth,
		Header:      cfg.Convert.Header,
	}
	if w := int(cmd.Int("indent")); w > 0 {
		opts.IndentWidth = w
	}
	if cmd.Bool("no-header") {
		opts.Header = false
	}

	res := convert.Convert(string(data), opts)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s: %s\n", input, d)
	}
	if !res.OK {
		return fmt.Errorf("%s: conversion produced incomplete output", input)
	}

	if cmd.Bool("stdout") {
		fmt.Print(res.Text)
		return nil
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".py"
	}
	return os.WriteFile(output, []byte(res.Text), 0o644)
}

func treeAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 2 {
		return fmt.Errorf("usage: geeconvert tree <src-dir> <dst-dir>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := batch.Options{
		Extensions:  cfg.Batch.Extensions,
		Jobs:        cfg.Batch.Jobs,
		CopyOther:   cfg.Batch.CopyOther || cmd.Bool("copy-other"),
		Manifest:    cfg.Batch.Manifest,
		IndentWidth: cfg.Convert.IndentWidth,
		Header:      cfg.Convert.Header,
	}
	if j := int(cmd.Int("jobs")); j > 0 {
		opts.Jobs = j
	}

	report, err := batch.ConvertTree(ctx, cmd.Args().Get(0), cmd.Args().Get(1), opts)
	if err != nil {
		return err
	}

	printSummary(report, cmd.Bool("no-color"))
	if !report.OK() {
		os.Exit(1)
	}
	return nil
}

// printSummary writes the colored run summary, honoring NO_COLOR and
// non-interactive stderr.
func printSummary(report *batch.Report, noColorFlag bool) {
	noColor := noColorFlag || os.Getenv("NO_COLOR") != "" ||
		!term.IsTerminal(int(os.Stderr.Fd()))
	colorOK, colorFail, colorReset := "\033[32m", "\033[31m", "\033[0m"
	if noColor {
		colorOK, colorFail, colorReset = "", "", ""
	}

	total := len(report.Entries)
	if report.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d files, %d converted, %s%d failed%s\n",
			total, report.Converted, colorFail, report.Failed, colorReset)
		return
	}
	fmt.Fprintf(os.Stderr, "%d files, %s%d converted%s, 0 failed\n",
		total, colorOK, report.Converted, colorReset)
}

func notebookAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: geeconvert notebook <file.py | directory> [output]")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := notebook.RenderOptions{
		PromoteMarkdown: cfg.Notebook.PromoteMarkdown && !cmd.Bool("no-markdown"),
		KernelName:      cfg.Notebook.KernelName,
		TemplatePath:    cfg.Notebook.Template,
	}
	if tpl := cmd.String("template"); tpl != "" {
		opts.TemplatePath = tpl
	}

	target := cmd.Args().First()
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		dst := target
		if cmd.NArg() > 1 {
			dst = cmd.Args().Get(1)
		}
		count, err := notebook.RenderDir(target, dst, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d notebooks rendered\n", count)
		return nil
	}

	output := strings.TrimSuffix(target, filepath.Ext(target)) + ".ipynb"
	if cmd.NArg() > 1 {
		output = cmd.Args().Get(1)
	}
	return notebook.RenderFile(target, output, opts)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: geeconvert run <file.ipynb | directory>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := notebook.ExecOptions{
		Python:          cfg.Run.Python,
		CellTimeout:     cfg.Run.CellTimeout,
		NotebookTimeout: cfg.Run.NotebookTimeout,
		StopOnError:     cfg.Run.StopOnError || cmd.Bool("stop-on-error"),
	}
	if d := cmd.Duration("timeout"); d > 0 {
		opts.NotebookTimeout = d
	}

	target := cmd.Args().First()
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		jobs := cfg.Run.Jobs
		if j := int(cmd.Int("jobs")); j > 0 {
			jobs = j
		}
		return notebook.ExecuteDir(ctx, target, jobs, opts)
	}
	return notebook.ExecuteFile(ctx, target, opts)
}
