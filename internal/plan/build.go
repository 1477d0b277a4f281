package plan

import (
	"fmt"
	"time"

	"github.com/pipeweld/pipeweld"
)

// Build turns the plan into a ready-to-spawn graph. It resolves stage
// names, installs endpoints and pipes, and validates the result, so a
// graph returned without error will not be rejected at spawn time for
// structural reasons.
func (p *Plan) Build() (*pipeweld.Graph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := pipeweld.NewGraph()
	if p.Grace != "" {
		d, err := time.ParseDuration(p.Grace)
		if err != nil {
			return nil, fmt.Errorf("grace: %w", err)
		}
		g.SetTermGrace(d)
	}

	ids := make(map[string]pipeweld.NodeID, len(p.Stages))
	for _, s := range p.Stages {
		stdin, err := s.Stdin.endpoint()
		if err != nil {
			return nil, fmt.Errorf("stage %s stdin: %w", s.Name, err)
		}
		stdout, err := s.Stdout.endpoint()
		if err != nil {
			return nil, fmt.Errorf("stage %s stdout: %w", s.Name, err)
		}
		stderr, err := s.Stderr.endpoint()
		if err != nil {
			return nil, fmt.Errorf("stage %s stderr: %w", s.Name, err)
		}
		ids[s.Name] = g.AddNode(pipeweld.Command{
			Program: s.Program,
			Args:    s.Args,
			Env:     s.Env,
			Dir:     s.Dir,
		}, stdin, stdout, stderr)
	}

	for _, pipe := range p.Pipes {
		src, ok := ids[pipe.From]
		if !ok {
			return nil, fmt.Errorf("pipe from %q: no such stage", pipe.From)
		}
		dst, ok := ids[pipe.To]
		if !ok {
			return nil, fmt.Errorf("pipe to %q: no such stage", pipe.To)
		}
		var err error
		if pipe.Stream == StreamStderr {
			err = g.ConnectStderr(src, dst)
		} else {
			err = g.Connect(src, dst)
		}
		if err != nil {
			return nil, fmt.Errorf("pipe %s -> %s: %w", pipe.From, pipe.To, err)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (in *Input) endpoint() (pipeweld.Endpoint, error) {
	if in == nil {
		return pipeweld.Inherit(), nil
	}
	switch in.Source {
	case SourceInherit:
		return pipeweld.Inherit(), nil
	case SourceNull:
		return pipeweld.Null(), nil
	case SourceFile:
		return pipeweld.InputFile(in.Path), nil
	case SourceData:
		return pipeweld.InputString(in.Data), nil
	}
	return pipeweld.Endpoint{}, fmt.Errorf("source %q not supported", in.Source)
}

func (out *Output) endpoint() (pipeweld.Endpoint, error) {
	if out == nil {
		return pipeweld.Inherit(), nil
	}
	switch out.Target {
	case TargetInherit:
		return pipeweld.Inherit(), nil
	case TargetNull:
		return pipeweld.Null(), nil
	case TargetFile:
		return pipeweld.OutputFile(out.Path), nil
	case TargetAppend:
		return pipeweld.AppendFile(out.Path), nil
	}
	return pipeweld.Endpoint{}, fmt.Errorf("target %q not supported", out.Target)
}
