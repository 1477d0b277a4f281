package pipeweld

import "context"

// Run spawns g and waits for the whole pipeline to finish. The Result
// reports per-stage outcomes even when some stages fail; the error covers
// graph validation, spawning and the wait layer only.
func Run(ctx context.Context, g *Graph) (Result, error) {
	p, err := Spawn(ctx, g)
	if err != nil {
		return Result{}, err
	}
	return p.Await()
}

// Chain builds the common linear pipeline: the stdout of each command
// feeds the stdin of the next. The first stdin, the last stdout and all
// stderr streams inherit the host process streams until the caller
// connects or rebinds them.
func Chain(cmds ...Command) *Graph {
	g := NewGraph()
	var prev NodeID
	for i, c := range cmds {
		id := g.AddNode(c, Inherit(), Inherit(), Inherit())
		if i > 0 {
			_ = g.Connect(prev, id) // fresh linear ids cannot collide
		}
		prev = id
	}
	return g
}
