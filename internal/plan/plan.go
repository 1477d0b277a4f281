// Package plan loads declarative pipeline descriptions from YAML and
// turns them into runnable graphs.
package plan

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Endpoint selectors as written in plan files. The null selector has to
// be quoted in YAML ("null"), plain null decodes as an empty value.
const (
	SourceInherit = "inherit"
	SourceNull    = "null"
	SourceFile    = "file"
	SourceData    = "data"

	TargetInherit = "inherit"
	TargetNull    = "null"
	TargetFile    = "file"
	TargetAppend  = "append"

	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Plan is one pipeline description. Stages are named so pipes can refer
// to them; the wiring rules (one producer per stdin, one consumer per
// output stream, no loops) are enforced when the plan is built.
type Plan struct {
	Version int     `yaml:"version" validate:"eq=0"`
	Name    string  `yaml:"name,omitempty"`
	Grace   string  `yaml:"grace,omitempty"` // termination grace, e.g. "10s"
	Stages  []Stage `yaml:"stages" validate:"required,min=1,dive"`
	Pipes   []Pipe  `yaml:"pipes,omitempty" validate:"omitempty,dive"`
}

// Stage describes one command. Omitted endpoints inherit the host
// process streams.
type Stage struct {
	Name    string            `yaml:"name" validate:"required"`
	Program string            `yaml:"program" validate:"required"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Stdin   *Input            `yaml:"stdin,omitempty"`
	Stdout  *Output           `yaml:"stdout,omitempty"`
	Stderr  *Output           `yaml:"stderr,omitempty"`
}

// Input binds a stage's stdin.
type Input struct {
	Source string `yaml:"source" validate:"required,oneof=inherit null file data"`
	Path   string `yaml:"path,omitempty"`
	Data   string `yaml:"data,omitempty"`
}

// Output binds a stage's stdout or stderr.
type Output struct {
	Target string `yaml:"target" validate:"required,oneof=inherit null file append"`
	Path   string `yaml:"path,omitempty"`
}

// Pipe connects the named stream of one stage to the stdin of another.
// Stream defaults to stdout.
type Pipe struct {
	From   string `yaml:"from" validate:"required"`
	Stream string `yaml:"stream,omitempty" validate:"omitempty,oneof=stdout stderr"`
	To     string `yaml:"to" validate:"required"`
}

// validate reports field paths using the yaml names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and parses the plan file at path.
func Load(fsys afero.Fs, path string) (*Plan, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes one plan from r. Unknown YAML fields are rejected, and
// the decoded plan is validated before it is returned.
func Parse(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	err := dec.Decode(&p)
	if errors.Is(err, io.EOF) {
		return nil, errors.New("plan is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the schema: required fields, endpoint selectors, the
// grace duration, and that stage names are unique. Wiring problems like
// unknown pipe targets or loops surface from Build.
func (p *Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("plan schema: %w", err)
	}

	if p.Grace != "" {
		if _, err := time.ParseDuration(p.Grace); err != nil {
			return fmt.Errorf("grace: %w", err)
		}
	}

	seen := make(map[string]bool, len(p.Stages))
	for _, s := range p.Stages {
		if seen[s.Name] {
			return fmt.Errorf("stage name %q used twice", s.Name)
		}
		seen[s.Name] = true

		if s.Stdin != nil && s.Stdin.Source == SourceFile && s.Stdin.Path == "" {
			return fmt.Errorf("stage %s stdin: file source needs a path", s.Name)
		}
		for _, out := range []struct {
			name string
			o    *Output
		}{{"stdout", s.Stdout}, {"stderr", s.Stderr}} {
			if out.o == nil {
				continue
			}
			if (out.o.Target == TargetFile || out.o.Target == TargetAppend) && out.o.Path == "" {
				return fmt.Errorf("stage %s %s: %s target needs a path", s.Name, out.name, out.o.Target)
			}
		}
	}
	return nil
}
