package pipeweld

import (
	"fmt"
	"strings"
	"time"
)

// NodeID identifies one node inside the Graph that issued it.
type NodeID int

type stream int

const (
	streamStdout stream = iota
	streamStderr
)

func (s stream) String() string {
	if s == streamStderr {
		return "stderr"
	}
	return "stdout"
}

type edge struct {
	src       NodeID
	srcStream stream
	dst       NodeID
}

type node struct {
	cmd    Command
	stdin  Endpoint
	stdout Endpoint
	stderr Endpoint
}

// DefaultTermGrace is how long a child may survive its context being
// cancelled before it is forcibly killed, unless SetTermGrace says
// otherwise.
const DefaultTermGrace = 10 * time.Second

// Graph is a set of commands plus the data-flow connections between them.
// Nodes are added with AddNode, pipes with Connect and ConnectStderr.
// The zero value is an empty graph ready for use.
//
// Spawning never mutates a Graph, so one graph can be run many times,
// concurrently if desired.
type Graph struct {
	nodes     []node
	edges     []edge
	termGrace time.Duration
}

func NewGraph() *Graph { return &Graph{} }

// SetTermGrace bounds how long a child process may keep running after the
// spawn context is cancelled, or keep a connection open after exiting,
// before it is killed. Values <= 0 select DefaultTermGrace.
func (g *Graph) SetTermGrace(d time.Duration) *Graph {
	g.termGrace = d
	return g
}

// AddNode adds one command with explicit endpoints for its three standard
// streams and returns its id. The command is copied, so the caller may
// reuse or modify cmd afterwards. Endpoints left as zero values inherit
// the host process streams until a connection claims them.
func (g *Graph) AddNode(cmd Command, stdin, stdout, stderr Endpoint) NodeID {
	g.nodes = append(g.nodes, node{
		cmd:    cmd.clone(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	})
	return NodeID(len(g.nodes) - 1)
}

// Connect pipes the stdout of src into the stdin of dst. Each stdin
// accepts at most one producer and each output stream at most one
// consumer; a stream bound to an explicit endpoint (anything but the
// inherit default) is taken as well. Connections that would close a
// loop are rejected.
func (g *Graph) Connect(src, dst NodeID) error {
	return g.connect(src, streamStdout, dst)
}

// ConnectStderr pipes the stderr of src into the stdin of dst. Together
// with Connect this allows one node to feed two different consumers.
func (g *Graph) ConnectStderr(src, dst NodeID) error {
	return g.connect(src, streamStderr, dst)
}

func (g *Graph) connect(src NodeID, s stream, dst NodeID) error {
	for _, id := range []NodeID{src, dst} {
		if !g.knows(id) {
			return graphErrorf(UnknownNode, "stage %d does not exist", id)
		}
	}

	if ep := g.nodes[dst].stdin; !ep.isInherit() {
		return graphErrorf(DuplicateConnection, "stdin of stage %d is bound to %s", dst, ep.describe())
	}
	if ep := g.outEndpoint(src, s); !ep.isInherit() {
		return graphErrorf(DuplicateConnection, "%s of stage %d is bound to %s", s, src, ep.describe())
	}
	for _, e := range g.edges {
		if e.dst == dst {
			return graphErrorf(DuplicateConnection, "stdin of stage %d already has a producer (stage %d)", dst, e.src)
		}
		if e.src == src && e.srcStream == s {
			return graphErrorf(DuplicateConnection, "%s of stage %d already has a consumer (stage %d)", s, src, e.dst)
		}
	}

	if src == dst {
		return graphErrorf(Cycle, "stage %d cannot feed itself", src)
	}
	if g.reaches(dst, src) {
		return graphErrorf(Cycle, "connecting stage %d to stage %d closes a loop", src, dst)
	}

	g.edges = append(g.edges, edge{src: src, srcStream: s, dst: dst})
	return nil
}

// Validate checks the whole graph: commands name a program, endpoints
// point the right way, every connection references known nodes, no stream
// has two parties and the connections form a DAG. Spawn calls it first,
// so no process ever starts for an invalid graph.
func (g *Graph) Validate() error {
	for i, n := range g.nodes {
		if n.cmd.Program == "" {
			return fmt.Errorf("stage %d: %w", i, ErrEmptyProgram)
		}
		if err := checkEndpoint(n.stdin, true); err != nil {
			return fmt.Errorf("stage %d stdin: %w", i, err)
		}
		if err := checkEndpoint(n.stdout, false); err != nil {
			return fmt.Errorf("stage %d stdout: %w", i, err)
		}
		if err := checkEndpoint(n.stderr, false); err != nil {
			return fmt.Errorf("stage %d stderr: %w", i, err)
		}
	}

	stdins := make(map[NodeID]bool, len(g.edges))
	outs := make(map[NodeID][2]bool, len(g.edges))
	for _, e := range g.edges {
		if !g.knows(e.src) || !g.knows(e.dst) {
			return graphErrorf(UnknownNode, "connection %d->%d references an unknown stage", e.src, e.dst)
		}
		if stdins[e.dst] || !g.nodes[e.dst].stdin.isInherit() {
			return graphErrorf(DuplicateConnection, "stdin of stage %d has more than one producer", e.dst)
		}
		stdins[e.dst] = true
		taken := outs[e.src]
		if taken[e.srcStream] || !g.outEndpoint(e.src, e.srcStream).isInherit() {
			return graphErrorf(DuplicateConnection, "%s of stage %d has more than one consumer", e.srcStream, e.src)
		}
		taken[e.srcStream] = true
		outs[e.src] = taken
	}

	return g.checkAcyclic()
}

func checkEndpoint(ep Endpoint, input bool) error {
	if input && !ep.isInput() {
		return fmt.Errorf("%w: %s cannot feed stdin", ErrBadEndpoint, ep.describe())
	}
	if !input && !ep.isOutput() {
		return fmt.Errorf("%w: %s cannot consume output", ErrBadEndpoint, ep.describe())
	}
	switch ep.kind {
	case endpointInputFile, endpointOutputFile, endpointAppendFile:
		if ep.path == "" {
			return fmt.Errorf("%w: empty file path", ErrBadEndpoint)
		}
	case endpointReader:
		if ep.r == nil {
			return fmt.Errorf("%w: nil reader", ErrBadEndpoint)
		}
	case endpointWriter:
		if ep.w == nil {
			return fmt.Errorf("%w: nil writer", ErrBadEndpoint)
		}
	}
	return nil
}

// checkAcyclic runs Kahn's algorithm over the connection edges.
func (g *Graph) checkAcyclic() error {
	indegree := make([]int, len(g.nodes))
	for _, e := range g.edges {
		indegree[e.dst]++
	}
	var queue []NodeID
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, NodeID(i))
		}
	}
	done := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		done++
		for _, e := range g.edges {
			if e.src != id {
				continue
			}
			indegree[e.dst]--
			if indegree[e.dst] == 0 {
				queue = append(queue, e.dst)
			}
		}
	}
	if done == len(g.nodes) {
		return nil
	}
	var loop []string
	for i, d := range indegree {
		if d > 0 {
			loop = append(loop, fmt.Sprintf("%d", i))
		}
	}
	return graphErrorf(Cycle, "stages %s form a loop", strings.Join(loop, ", "))
}

func (g *Graph) knows(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

func (g *Graph) outEndpoint(id NodeID, s stream) Endpoint {
	if s == streamStderr {
		return g.nodes[id].stderr
	}
	return g.nodes[id].stdout
}

// reaches reports whether to is reachable from from over connection
// edges, counting a node as reachable from itself.
func (g *Graph) reaches(from, to NodeID) bool {
	if from == to {
		return true
	}
	seen := make(map[NodeID]bool, len(g.nodes))
	queue := []NodeID{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, e := range g.edges {
			if e.src == id && !seen[e.dst] {
				queue = append(queue, e.dst)
			}
		}
	}
	return false
}

func (g *Graph) grace() time.Duration {
	if g.termGrace <= 0 {
		return DefaultTermGrace
	}
	return g.termGrace
}
