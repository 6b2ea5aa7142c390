package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"kestrel/internal/namespace"
	"kestrel/internal/ui"
)

var aproposCmd = &cobra.Command{
	Use:   "apropos [PATTERN]",
	Short: "List symbols of a namespace whose names match a glob pattern",
	Long: `List symbols of a namespace whose names match PATTERN. PATTERN is a
case-sensitive glob matched against the whole name ("*" matches everything,
"get_*" every name starting with get_). Use --import to load modules first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApropos,
}

func init() {
	aproposCmd.Flags().StringP("namespace", "n", namespace.GlobalName, "namespace to search")
	aproposCmd.Flags().String("kind", "all", "symbol kinds (comma separated: functions, variables, constants, intrinsic, struct, ...)")
	aproposCmd.Flags().Bool("sort", false, "sort results by name instead of table order")
}

func runApropos(cmd *cobra.Command, args []string) error {
	pattern := "*"
	if len(args) == 1 {
		pattern = args[0]
	}
	nsName, err := cmd.Flags().GetString("namespace")
	if err != nil {
		return err
	}
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	sortNames, err := cmd.Flags().GetBool("sort")
	if err != nil {
		return err
	}
	mask, err := namespace.ParseMask(kind)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	found, err := s.rt.Namespaces().Apropos(nsName, pattern, mask)
	if err != nil {
		_ = s.close(cmd)
		return err
	}
	if sortNames {
		slices.Sort(found)
	}
	ns, _ := s.rt.Namespaces().Find(nsName)
	printNames(cmd.OutOrStdout(), ns, found)
	return s.close(cmd)
}

// printNames prints one "name  kind" row per symbol, aligned on the widest
// name.
func printNames(out io.Writer, ns *namespace.Namespace, found []string) {
	width := 0
	for _, name := range found {
		width = max(width, len([]rune(name)))
	}
	width = min(width, 48)
	for _, name := range found {
		kind := ""
		if sym, ok := ns.Lookup(name); ok {
			kind = sym.Kind.String()
		}
		fmt.Fprintf(out, "%s  %s\n", ui.PadRight(ui.Truncate(name, width), width), kind)
	}
}

// printSymbols lists every symbol of ns selected by mask.
func printSymbols(out io.Writer, ns *namespace.Namespace, mask namespace.Mask) {
	found, err := ns.Apropos("*", mask)
	if err != nil {
		return
	}
	slices.Sort(found)
	printNames(out, ns, found)
}
