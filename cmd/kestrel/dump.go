package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write a snapshot of every namespace and symbol",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "json", "snapshot format (json|msgpack)")
	dumpCmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")
}

func runDump(cmd *cobra.Command, args []string) (err error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "json" && format != "msgpack" {
		return fmt.Errorf("unsupported format %q (must be json or msgpack)", format)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(cmd); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = cmd.OutOrStdout()
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	snap := s.rt.Namespaces().Snapshot()
	if format == "msgpack" {
		return snap.EncodeMsgpack(w)
	}
	return snap.EncodeJSON(w)
}
