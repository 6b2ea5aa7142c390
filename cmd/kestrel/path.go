package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kestrel/internal/config"
	"kestrel/internal/loader"
)

var pathCmd = &cobra.Command{
	Use:   "path [MODULE]",
	Short: "Show the module search path, or where MODULE would be loaded from",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _, err := loadConfigFile(cmd)
		if err != nil {
			return err
		}
		modulePath, err := cmd.Root().PersistentFlags().GetString("module-path")
		if err != nil {
			return err
		}
		path, src, _ := config.ResolveSearchPath(modulePath, file)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "search path (from %s):\n", src)
		for _, dir := range filepath.SplitList(path) {
			fmt.Fprintf(out, "  %s\n", dir)
		}
		if len(args) == 1 {
			eps := loader.EntryPointsFor(args[0])
			fmt.Fprintf(out, "file:      %s\n", loader.LibraryFile(args[0]))
			fmt.Fprintf(out, "canonical: %s\n", loader.CanonicalName(args[0]))
			fmt.Fprintf(out, "entry:     %s, %s, %s\n", eps.InitNS, eps.Init, eps.Deinit)
		}
		return nil
	},
}
