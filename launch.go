package pipeweld

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/pipeweld/pipeweld/internal/log"
)

// Spawn validates g and launches every node as a direct child of the host
// process. All pipes are allocated before the first start, and once every
// child runs the parent closes its copies of the descriptors, so EOF
// travels through the pipeline as producers exit.
//
// A GraphError means no process was started. A SpawnError means one node
// could not be launched; children already running at that point have been
// killed and reaped, and are listed in SpawnError.Terminated.
//
// Cancelling ctx asks every still-running child to terminate and, after
// the graph's grace period, kills it.
func Spawn(ctx context.Context, g *Graph) (*Pipeline, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = log.ContextAttrs(ctx, slog.String("run_id", runID))

	n := len(g.nodes)
	stdin := make([]io.Reader, n)
	stdout := make([]io.Writer, n)
	stderr := make([]io.Writer, n)

	// Parent-side descriptors handed to children. Every one of them gets
	// closed when all children have started or when spawning fails,
	// whichever comes first.
	var held []*os.File
	closeHeld := func() {
		for _, f := range held {
			if err := f.Close(); err != nil {
				slog.DebugContext(ctx, "closing descriptor", "error", err)
			}
		}
		held = nil
	}

	for _, e := range g.edges {
		pr, pw, err := os.Pipe()
		if err != nil {
			closeHeld()
			return nil, &SpawnError{
				Node:    e.src,
				Program: g.nodes[e.src].cmd.Program,
				Err:     fmt.Errorf("allocating pipe: %w", err),
			}
		}
		held = append(held, pr, pw)
		stdin[e.dst] = pr
		if e.srcStream == streamStderr {
			stderr[e.src] = pw
		} else {
			stdout[e.src] = pw
		}
	}

	for i, nd := range g.nodes {
		if stdin[i] == nil {
			r, f, err := nd.stdin.openInput()
			if err != nil {
				closeHeld()
				return nil, &SpawnError{Node: NodeID(i), Program: nd.cmd.Program, Err: err}
			}
			if f != nil {
				held = append(held, f)
			}
			stdin[i] = r
		}
		if stdout[i] == nil {
			w, f, err := nd.stdout.openOutput(os.Stdout)
			if err != nil {
				closeHeld()
				return nil, &SpawnError{Node: NodeID(i), Program: nd.cmd.Program, Err: err}
			}
			if f != nil {
				held = append(held, f)
			}
			stdout[i] = w
		}
		if stderr[i] == nil {
			w, f, err := nd.stderr.openOutput(os.Stderr)
			if err != nil {
				closeHeld()
				return nil, &SpawnError{Node: NodeID(i), Program: nd.cmd.Program, Err: err}
			}
			if f != nil {
				held = append(held, f)
			}
			stderr[i] = w
		}
	}

	cmds := make([]*exec.Cmd, n)
	for i, nd := range g.nodes {
		cmd := exec.CommandContext(ctx, nd.cmd.Program, nd.cmd.Args...)
		cmd.Env = nd.cmd.environ()
		cmd.Dir = nd.cmd.Dir
		cmd.Stdin = stdin[i]
		cmd.Stdout = stdout[i]
		cmd.Stderr = stderr[i]
		cmd.WaitDelay = g.grace()
		cmd.Cancel = termCancel(cmd)
		cmds[i] = cmd
	}

	p := &Pipeline{
		runID:   runID,
		ctx:     ctx,
		cmds:    cmds,
		stages:  make([]StageStatus, n),
		started: time.Now().UTC(),
	}

	var started []NodeID
	for i, cmd := range cmds {
		p.stages[i] = StageStatus{
			Node:    NodeID(i),
			Program: g.nodes[i].cmd.Program,
			Started: time.Now().UTC(),
		}
		if err := cmd.Start(); err != nil {
			killStarted(ctx, cmds, started)
			closeHeld()
			return nil, &SpawnError{
				Node:       NodeID(i),
				Program:    g.nodes[i].cmd.Program,
				Err:        err,
				Terminated: started,
			}
		}
		started = append(started, NodeID(i))
		slog.DebugContext(ctx, "stage started",
			"stage", i, "program", g.nodes[i].cmd.Program, "pid", cmd.Process.Pid)
	}
	closeHeld()

	return p, nil
}

// termCancel makes context cancellation deliver the graceful termination
// signal; exec escalates to a kill once WaitDelay expires.
func termCancel(cmd *exec.Cmd) func() error {
	return func() error {
		return cmd.Process.Signal(termSignal)
	}
}

// killStarted tears down the children of a partially spawned pipeline:
// kill them all first, then reap them all.
func killStarted(ctx context.Context, cmds []*exec.Cmd, started []NodeID) {
	for _, id := range started {
		err := cmds[id].Process.Kill()
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.ErrorContext(ctx, "killing stage after failed spawn", "stage", int(id), "error", err)
		}
	}
	for _, id := range started {
		_ = cmds[id].Wait()
	}
}
