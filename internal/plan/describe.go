package plan

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Describe renders the plan as a line-per-fact summary. Arguments are
// quoted individually, which makes the argv boundaries visible: an
// argument holding shell metacharacters shows up as exactly one quoted
// token.
func (p *Plan) Describe() string {
	var b strings.Builder

	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&b, "plan: %s\n", name)
	if p.Grace != "" {
		fmt.Fprintf(&b, "grace: %s\n", p.Grace)
	}

	for i, s := range p.Stages {
		fmt.Fprintf(&b, "stage %d: %s\n", i, s.Name)
		fmt.Fprintf(&b, "  argv: %q", s.Program)
		for _, a := range s.Args {
			fmt.Fprintf(&b, " %q", a)
		}
		b.WriteString("\n")
		if len(s.Env) > 0 {
			b.WriteString("  env:")
			for _, k := range slices.Sorted(maps.Keys(s.Env)) {
				fmt.Fprintf(&b, " %s=%s", k, s.Env[k])
			}
			b.WriteString("\n")
		}
		if s.Dir != "" {
			fmt.Fprintf(&b, "  dir: %s\n", s.Dir)
		}
		if s.Stdin != nil {
			fmt.Fprintf(&b, "  stdin: %s\n", s.Stdin.describe())
		}
		if s.Stdout != nil {
			fmt.Fprintf(&b, "  stdout: %s\n", s.Stdout.describe())
		}
		if s.Stderr != nil {
			fmt.Fprintf(&b, "  stderr: %s\n", s.Stderr.describe())
		}
	}

	for _, pipe := range p.Pipes {
		stream := pipe.Stream
		if stream == "" {
			stream = StreamStdout
		}
		fmt.Fprintf(&b, "pipe: %s/%s -> %s\n", pipe.From, stream, pipe.To)
	}

	return b.String()
}

func (in *Input) describe() string {
	switch in.Source {
	case SourceFile:
		return "file " + in.Path
	case SourceData:
		return fmt.Sprintf("data (%d bytes)", len(in.Data))
	}
	return in.Source
}

func (out *Output) describe() string {
	switch out.Target {
	case TargetFile, TargetAppend:
		return out.Target + " " + out.Path
	}
	return out.Target
}
