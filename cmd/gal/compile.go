package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galang-lang/gal/gal"
)

func newCompileCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compile [file.gal]",
		Short: "Compile a GAL script to a .galc bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if out == "" {
				out = strings.TrimSuffix(path, ".gal") + ".galc"
			}
			return compileFile(path, out)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default: input with .galc extension)")
	return cmd
}

func compileFile(path, out string) error {
	src, err := readSource(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	result, err := gal.Compile(src, path)
	if err != nil {
		return err
	}
	if verbose {
		for _, d := range result.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s:%s: %s\n", path, d.Location.Begin, d.Message)
		}
	}

	v := gal.New(gal.WithoutStdlib())
	buf, err := v.Dump(result.Chunk)
	if err != nil {
		return fmt.Errorf("dumping %s: %w", path, err)
	}
	if err := os.WriteFile(out, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(buf))
	return nil
}
