package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/plan"
)

func doCheck(cmd *cobra.Command, args []string) error {
	fsys := afero.NewOsFs()
	var bad int
	for _, path := range args {
		p, err := plan.Load(fsys, path)
		if err == nil {
			_, err = p.Build()
		}
		if err != nil {
			bad++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: ok\n%s", path, indent(p.Describe()))
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d plans invalid", bad, len(args))
	}
	return nil
}

func indent(s string) string {
	var b strings.Builder
	for line := range strings.Lines(s) {
		b.WriteString("  ")
		b.WriteString(line)
	}
	return b.String()
}
