// Package main implements the kestrel CLI: it hosts the runtime, imports
// extension modules and inspects the namespaces they register.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kestrel/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "kestrel",
	Short:         "Kestrel runtime host and extension module tools",
	Long:          `Kestrel loads native extension modules into namespaces and lets you inspect what they register.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupColor(cmd); err != nil {
			return err
		}
		if err := setupProfiling(cmd); err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		runTraceCleanup()
		stopProfiling()
	},
}

var errorLabel = color.New(color.FgRed, color.Bold)

// main registers subcommands and persistent flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(aproposCmd)
	rootCmd.AddCommand(namespacesCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to kestrel.toml (default: search upwards from the working directory)")
	pf.String("module-path", "", "module search path, overrides kestrel.toml and $KESTREL_MODULE_PATH")
	pf.StringArray("import", nil, "module to import before running the command, as module[@namespace] (repeatable)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("ui", "auto", "show preload progress (auto|on|off)")
	pf.Bool("timings", false, "print per-module load timings")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson|chrome)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")

	if err := rootCmd.Execute(); err != nil {
		dumpTraceRing(os.Stderr)
		runTraceCleanup()
		stopProfiling()
		fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel.Sprint("error:"), err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func setupColor(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch value {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}
