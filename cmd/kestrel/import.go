package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kestrel/internal/interp"
	"kestrel/internal/namespace"
)

var importCmd = &cobra.Command{
	Use:   "import MODULE [NAMESPACE]",
	Short: "Load an extension module and list what it registered",
	Long: `Load an extension module into NAMESPACE (default: [modules].default_namespace
or Global), then print the symbols of that namespace. The module is unloaded
again when the command exits.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("kind", "all", "symbol kinds to list (comma separated, e.g. functions,constants)")
	importCmd.Flags().Bool("quiet", false, "only report success")
}

func runImport(cmd *cobra.Command, args []string) error {
	arg := args[0]
	if len(args) == 2 {
		arg += "@" + args[1]
	}
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	mask, err := namespace.ParseMask(kind)
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	s, err := newSession(cmd, arg)
	if err != nil {
		return err
	}
	target := s.targets[len(s.targets)-1]
	if err := reportImport(cmd.OutOrStdout(), s.rt, target.Module, mask, quiet); err != nil {
		_ = s.close(cmd)
		return err
	}
	return s.close(cmd)
}

// reportImport prints where module lives. A module that was already loaded
// keeps its original namespace, so that is the one reported and listed.
func reportImport(out io.Writer, rt *interp.Runtime, module string, mask namespace.Mask, quiet bool) error {
	m, ok := rt.Loader().Module(module)
	if !ok {
		return fmt.Errorf("module %s is not loaded", module)
	}
	heading := color.New(color.Bold)
	fmt.Fprintf(out, "%s %s -> %s", heading.Sprint("imported"), m.Name(), m.Namespace())
	fmt.Fprintf(out, " (%s via %s)\n", m.File(), m.Entry())
	if quiet {
		return nil
	}
	if ns, ok := rt.Namespaces().Find(m.Namespace()); ok {
		printSymbols(out, ns, mask)
	}
	return nil
}
