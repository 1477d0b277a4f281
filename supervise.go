package pipeweld

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pipeline is one running instance of a Graph. It is created by Spawn and
// stays valid after the children exit; Await and Terminate may be called
// from any goroutine.
type Pipeline struct {
	runID   string
	ctx     context.Context
	cmds    []*exec.Cmd
	stages  []StageStatus
	started time.Time

	once   sync.Once
	result Result
	err    error
}

// RunID returns the identifier of this run, the same value carried by the
// Result and by the log records of the children.
func (p *Pipeline) RunID() string { return p.runID }

// Await blocks until every stage has exited and returns the assembled
// Result. Stages are reaped concurrently as they finish; a failing stage
// never cuts the collection short, the remaining stages still run to
// their own end.
//
// The error return is reserved for the wait layer itself: if the OS
// refuses to reap a child the run aborts, because ownership of the child
// processes can no longer be trusted. Stage failures are not errors; they
// live in the Result.
//
// Await is idempotent, later calls return the same Result.
func (p *Pipeline) Await() (Result, error) {
	p.once.Do(p.collect)
	return p.result, p.err
}

func (p *Pipeline) collect() {
	results := make(chan StageStatus, len(p.cmds))
	var g errgroup.Group
	for i, cmd := range p.cmds {
		g.Go(func() error {
			st := p.stages[i]
			err := cmd.Wait()
			st.Stopped = time.Now().UTC()
			st.State = cmd.ProcessState

			var fatal error
			var exitErr *exec.ExitError
			var sysErr *os.SyscallError
			switch {
			case err == nil:
			case errors.As(err, &exitErr):
				// nonzero exit or terminating signal, carried by State
			case errors.As(err, &sysErr):
				st.Err = err
				fatal = fmt.Errorf("waiting on stage %d (%s): %w", i, st.Program, err)
			default:
				// endpoint transfer error, expired wait delay or the
				// run context ending before the stage
				st.Err = err
			}

			slog.DebugContext(p.ctx, "stage exited",
				"stage", i, "exit_code", st.ExitCode(), "error", st.Err)
			results <- st
			return fatal
		})
	}
	fatal := g.Wait()
	close(results)

	stages := make([]StageStatus, len(p.cmds))
	for st := range results {
		stages[st.Node] = st
	}

	ok := fatal == nil
	for _, st := range stages {
		ok = ok && st.Success()
	}

	p.result = Result{
		RunID:     p.runID,
		Stages:    stages,
		Succeeded: ok,
		Started:   p.started,
		Stopped:   time.Now().UTC(),
	}
	p.err = fatal
}

// Terminate sends the graceful termination signal to every stage that is
// still running. Stages that already exited are skipped. It does not wait;
// call Await to reap. Signalling errors for the individual stages are
// joined into the returned error.
func (p *Pipeline) Terminate() error {
	var errs []error
	for i, cmd := range p.cmds {
		err := cmd.Process.Signal(termSignal)
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("stage %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
