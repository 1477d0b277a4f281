package main

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pipeweld/pipeweld"
	"github.com/pipeweld/pipeweld/internal/log"
	"github.com/pipeweld/pipeweld/internal/parallel"
	"github.com/pipeweld/pipeweld/internal/plan"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

// report is the rendered outcome of one plan run.
type report struct {
	path   string
	text   string
	failed bool
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("pipeweld",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	if flagJobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", flagJobs)
	}
	if err := setupColor(); err != nil {
		return err
	}

	failed := runPlans(ctx, afero.NewOsFs(), args)
	if flagWatch {
		return watchPlans(ctx, args)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pipelines failed", failed, len(args))
	}
	return nil
}

// runPlans executes the given plan files, up to --jobs of them at once,
// and returns how many did not succeed.
func runPlans(ctx context.Context, fsys afero.Fs, paths []string) int {
	var failed int
	m := parallel.NewMap(ctx, flagJobs, func(ctx context.Context, path string) (report, error) {
		return runOne(ctx, fsys, path)
	})
	for rep, err := range m.Iter(pathSeq(paths)) {
		if err != nil {
			slog.ErrorContext(ctx, "plan did not run", "error", err)
			failed++
			continue
		}
		fmt.Print(rep.text)
		if rep.failed {
			failed++
		}
	}
	return failed
}

func runOne(ctx context.Context, fsys afero.Fs, path string) (report, error) {
	p, err := plan.Load(fsys, path)
	if err != nil {
		return report{}, err
	}
	g, err := p.Build()
	if err != nil {
		return report{}, fmt.Errorf("plan %s: %w", path, err)
	}

	result, err := pipeweld.Run(ctx, g)
	if err != nil {
		return report{}, fmt.Errorf("plan %s: %w", path, err)
	}
	return report{
		path:   path,
		text:   render(p, path, result),
		failed: !result.Succeeded,
	}, nil
}

func render(p *plan.Plan, path string, result pipeweld.Result) string {
	var b strings.Builder

	status := green("ok")
	if !result.Succeeded {
		status = red("FAIL")
	}
	took := result.Stopped.Sub(result.Started).Round(time.Millisecond)
	fmt.Fprintf(&b, "%s %s (%s)\n", status, path, took)

	for _, st := range result.Stages {
		fmt.Fprintf(&b, "  [%d] %s: %s\n", st.Node, p.Stages[st.Node].Name, stageState(st))
	}
	return b.String()
}

func stageState(st pipeweld.StageStatus) string {
	switch {
	case st.Success():
		return green("ok")
	case st.Err != nil:
		return red(fmt.Sprintf("error: %v", st.Err))
	case st.Signaled():
		return red(fmt.Sprintf("signal %v", st.Signal()))
	default:
		return red(fmt.Sprintf("exit %d", st.ExitCode()))
	}
}

func setupColor() error {
	switch flagColor {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto":
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	default:
		return fmt.Errorf("--color must be auto, always or never, got %q", flagColor)
	}
	return nil
}

// watchPlans blocks, rerunning a plan whenever its file is written,
// until interrupted.
func watchPlans(ctx context.Context, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// watch directories, editors often replace the file on save
	watched := make(map[string]string, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = p
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
		}
	}
	slog.InfoContext(ctx, "watching plans", "count", len(paths))

	fsys := afero.NewOsFs()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			arg, ok := watched[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			slog.InfoContext(ctx, "plan changed", "path", arg)
			runPlans(ctx, fsys, []string{arg})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.ErrorContext(ctx, "watching plans", "error", err)
		}
	}
}

func pathSeq(paths []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range paths {
			if !yield(p, nil) {
				return
			}
		}
	}
}
