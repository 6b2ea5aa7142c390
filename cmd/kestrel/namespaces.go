package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kestrel/internal/namespace"
	"kestrel/internal/ui"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List public namespaces with their symbol counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		s.rt.Namespaces().Each(func(ns *namespace.Namespace) bool {
			fmt.Fprintf(out, "%s %6d symbols  (%d buckets)\n",
				ui.PadRight(ns.DisplayName(), 24), ns.Len(), ns.Buckets())
			return true
		})
		for _, name := range s.rt.Loader().Modules() {
			m, _ := s.rt.Loader().Module(name)
			fmt.Fprintf(out, "module %s -> %s\n", name, m.Namespace())
		}
		return s.close(cmd)
	},
}
