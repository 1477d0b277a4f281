// Package pipeweld composes and executes pipelines of external programs
// without a shell.
//
// Overview
//
// A Graph describes the work: each node is one Command (program path plus
// argument vector) with three stream endpoints, and each connection is a
// pipe from one node's stdout or stderr into another node's stdin. Commands
// are argument vectors end to end, so characters like ;, |, > or $ in an
// argument reach the child program as literal bytes. There is no place
// where a command line is assembled or re-parsed.
//
// Spawn turns a validated Graph into a running Pipeline: it allocates one
// OS pipe per connection, starts every node as a direct child process and
// hands the pipe descriptors over. Await reaps all children and assembles
// a Result with one StageStatus per node.
//
// Data flow:
//
//	Graph                 Spawn                  Pipeline
//	  |                     |                       |
//	  | AddNode/Connect     |                       |
//	  | Validate ---------->| os.Pipe per edge      |
//	  |                     | exec.Cmd per node     |
//	  |                     | Start all ----------->| children running
//	  |                     | close parent fds      |
//	  |                     |                       | Await: Wait per child
//	  |                     |                       |<------ StageStatus
//	  |                     |                       | ------> Result
//
// Success is strict: a Result succeeds only when every stage exited with
// status zero and no endpoint transfer failed. A single failing stage makes
// the whole pipeline fail, no matter where in the graph it sits. Callers
// wanting weaker rules inspect Result.Stages themselves.
//
// Invariants:
//   - No shell is ever involved; argv boundaries are preserved verbatim.
//   - Every connection endpoint has exactly one producer and one consumer.
//   - Data-flow connections form a DAG; cycles are rejected before spawn.
//   - All pipes exist before the first child starts.
//   - After a successful Spawn the parent holds no pipe descriptors, so
//     EOF propagates as soon as a producer exits.
//   - One stage failing never stops the collection of the other statuses.
//   - A Graph is not mutated by Spawn and may be spawned repeatedly.
package pipeweld
