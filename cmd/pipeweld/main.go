package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/pipeweld/pipeweld/internal/log"
)

var (
	flagVerbose bool // value of --verbose
	flagJobs    int  // value of --jobs
	flagWatch   bool // value of --watch
	flagColor   string
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	runCmd.Flags().IntVar(&flagJobs, "jobs", 1, "how many plans run at the same time")
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "keep running, rerun a plan whenever its file changes")
	runCmd.Flags().StringVar(&flagColor, "color", "auto", "colorize stage results: auto, always or never")

	// never print messages
	rootCmd.SilenceErrors = true

	// setup logging
	rootCmd.PersistentPreRunE = initPipeweld

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("pipeweld failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "pipeweld",
	Short:        "Tool running pipelines of external programs without a shell",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run [flags] plan.yaml...",
	Short: "run executes the given pipeline plans",
	Args:  cobra.MinimumNArgs(1),
	RunE:  doRun,
}

var checkCmd = &cobra.Command{
	Use:   "check plan.yaml...",
	Short: "check validates plans and prints what they would execute",
	Args:  cobra.MinimumNArgs(1),
	RunE:  doCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides version of a pipeweld",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("pipeweld: version info not available")
			return
		}

		fmt.Printf("pipeweld: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func initPipeweld(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(log.New(flagVerbose))
	return nil
}
