package plan_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipeweld/pipeweld"
	"github.com/pipeweld/pipeweld/internal/plan"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const wordCountPlan = `
version: 0
name: word-count
grace: 2s
stages:
  - name: emit
    program: /bin/echo
    args: ["alpha;beta|gamma", "-n"]
    env:
      LC_ALL: C
    stdin:
      source: "null"
  - name: count
    program: /usr/bin/wc
    args: ["-c"]
    stdout:
      target: file
      path: /tmp/out.txt
pipes:
  - from: emit
    to: count
`

func TestParse(t *testing.T) {
	t.Parallel()

	p, err := plan.Parse(strings.NewReader(wordCountPlan))
	require.NoError(t, err)
	require.Equal(t, "word-count", p.Name)
	require.Equal(t, "2s", p.Grace)
	require.Len(t, p.Stages, 2)
	require.Equal(t, "/bin/echo", p.Stages[0].Program)
	require.Equal(t, []string{"alpha;beta|gamma", "-n"}, p.Stages[0].Args)
	require.Equal(t, plan.SourceNull, p.Stages[0].Stdin.Source)
	require.Equal(t, plan.TargetFile, p.Stages[1].Stdout.Target)
	require.Len(t, p.Pipes, 1)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		then     string
	}{
		{"empty input", "", "plan is empty"},
		{"unknown field", "version: 0\nbogus: 1\nstages: [{name: a, program: /bin/true}]", "decoding plan"},
		{"no stages", "version: 0\nstages: []", "plan schema"},
		{"missing program", "version: 0\nstages: [{name: a}]", "plan schema"},
		{"unsupported version", "version: 1\nstages: [{name: a, program: /bin/true}]", "plan schema"},
		{"bad stdin source", "version: 0\nstages: [{name: a, program: /bin/true, stdin: {source: wire}}]", "plan schema"},
		{"bad pipe stream", "version: 0\nstages: [{name: a, program: /bin/true}, {name: b, program: /bin/true}]\npipes: [{from: a, stream: both, to: b}]", "plan schema"},
		{"bad grace", "version: 0\ngrace: banana\nstages: [{name: a, program: /bin/true}]", "grace"},
		{"duplicate stage name", "version: 0\nstages: [{name: a, program: /bin/true}, {name: a, program: /bin/false}]", "used twice"},
		{"file stdin without path", "version: 0\nstages: [{name: a, program: /bin/true, stdin: {source: file}}]", "needs a path"},
		{"file stdout without path", "version: 0\nstages: [{name: a, program: /bin/true, stdout: {target: file}}]", "needs a path"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := plan.Parse(strings.NewReader(tt.given))
			require.Error(t, err)
			require.ErrorContains(t, err, tt.then)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		then     pipeweld.GraphErrorKind // 0 means: match text instead
		text     string
	}{
		{
			scenario: "unknown pipe source",
			given:    "version: 0\nstages: [{name: a, program: /bin/true}]\npipes: [{from: ghost, to: a}]",
			text:     "no such stage",
		},
		{
			scenario: "pipe loop",
			given:    "version: 0\nstages: [{name: a, program: /bin/true}, {name: b, program: /bin/true}]\npipes: [{from: a, to: b}, {from: b, to: a}]",
			then:     pipeweld.Cycle,
		},
		{
			scenario: "two producers for one stdin",
			given:    "version: 0\nstages: [{name: a, program: /bin/true}, {name: b, program: /bin/true}, {name: c, program: /bin/cat}]\npipes: [{from: a, to: c}, {from: b, to: c}]",
			then:     pipeweld.DuplicateConnection,
		},
		{
			scenario: "piped stdin already bound",
			given:    "version: 0\nstages: [{name: a, program: /bin/true}, {name: c, program: /bin/cat, stdin: {source: data, data: x}}]\npipes: [{from: a, to: c}]",
			then:     pipeweld.DuplicateConnection,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			p, err := plan.Parse(strings.NewReader(tt.given))
			require.NoError(t, err)
			_, err = p.Build()
			require.Error(t, err)
			if tt.then != 0 {
				var gerr *pipeweld.GraphError
				require.ErrorAs(t, err, &gerr)
				require.Equal(t, tt.then, gerr.Kind)
			} else {
				require.ErrorContains(t, err, tt.text)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/plans/wc.yaml", []byte(wordCountPlan), 0o644))

	p, err := plan.Load(fs, "/plans/wc.yaml")
	require.NoError(t, err)
	require.Equal(t, "word-count", p.Name)

	_, err = plan.Load(fs, "/plans/missing.yaml")
	require.Error(t, err)
	require.ErrorContains(t, err, "opening plan")
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	p, err := plan.Parse(strings.NewReader(wordCountPlan))
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "describe", []byte(p.Describe()))
}

func TestBuildAndRun(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skipf("skipped, binary cat not available: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.txt")
	src := fmt.Sprintf(`
version: 0
name: roundtrip
grace: 5s
stages:
  - name: emit
    program: "%s"
    args: ["-c", "echo one; echo two"]
    stdin:
      source: "null"
  - name: gather
    program: "%s"
    stdout:
      target: file
      path: "%s"
pipes:
  - from: emit
    to: gather
`, sh, cat, out)

	p, err := plan.Parse(strings.NewReader(src))
	require.NoError(t, err)
	g, err := p.Build()
	require.NoError(t, err)

	result, err := pipeweld.Run(t.Context(), g)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(b))
}
