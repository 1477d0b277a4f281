package pipeweld

import (
	"os"
	"syscall"
	"time"
)

// StageStatus is the terminal state of one node. Exactly one is produced
// per node and per run, whether the stage succeeded or not.
//
// State is the reaped process state and carries the exit code or the
// terminating signal. Err is reserved for problems around the process:
// an endpoint transfer that failed, the run context ending before the
// stage, or the OS refusing the wait. A nonzero exit is not an Err.
type StageStatus struct {
	Node    NodeID
	Program string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Err     error
}

// Success reports whether the stage exited with status zero and all its
// endpoint transfers completed.
func (s StageStatus) Success() bool {
	return s.Err == nil && s.State != nil && s.State.Success()
}

// ExitCode returns the stage exit code, or -1 when the stage was signaled
// or never reaped.
func (s StageStatus) ExitCode() int {
	if s.State == nil {
		return -1
	}
	return s.State.ExitCode()
}

// Signaled reports whether the stage was killed by a signal.
func (s StageStatus) Signaled() bool {
	ws, ok := s.waitStatus()
	return ok && ws.Signaled()
}

// Signal returns the signal that killed the stage, or nil.
func (s StageStatus) Signal() os.Signal {
	if ws, ok := s.waitStatus(); ok && ws.Signaled() {
		return ws.Signal()
	}
	return nil
}

func (s StageStatus) waitStatus() (ws syscall.WaitStatus, ok bool) {
	if s.State == nil {
		return ws, false
	}
	ws, ok = s.State.Sys().(syscall.WaitStatus)
	return ws, ok
}

// Result is the complete outcome of one pipeline run. Stages holds one
// status per node, indexed by NodeID. Succeeded follows the strict rule:
// true only when every single stage succeeded.
type Result struct {
	RunID     string
	Stages    []StageStatus
	Succeeded bool
	Started   time.Time
	Stopped   time.Time
}

// FirstFailure returns the failed stage with the lowest id, for quick
// diagnosis. ok is false when the run succeeded.
func (r Result) FirstFailure() (st StageStatus, ok bool) {
	for _, s := range r.Stages {
		if !s.Success() {
			return s, true
		}
	}
	return StageStatus{}, false
}
