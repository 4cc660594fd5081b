package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galang-lang/gal/gal"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

func newRunCmd() *cobra.Command {
	var noStdlib bool

	cmd := &cobra.Command{
		Use:   "run [file.gal]",
		Short: "Compile and execute a GAL script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], noStdlib)
		},
	}

	cmd.Flags().BoolVar(&noStdlib, "no-stdlib", false, "run without registering the built-in standard library")
	return cmd
}

func runFile(path string, noStdlib bool) error {
	src, err := readSource(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var opts []gal.Option
	if noStdlib {
		opts = append(opts, gal.WithoutStdlib())
	}
	v := gal.New(opts...)

	results, diags, err := v.Run(src, path, nil)
	if verbose || err != nil {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s:%s: %s\n", path, d.Location.Begin, d.Message)
		}
	}
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Println(displayValue(v, r))
	}
	return nil
}

// displayValue renders a runtime value the way a REPL would echo a result:
// resolved strings print bare, everything else falls back to its kind or
// heap category.
func displayValue(v *gal.VM, val value.Value) string {
	if val.IsNumber() {
		return formatNumber(val.AsNumber())
	}
	if obj := v.Heap.Resolve(val); obj != nil {
		if s, ok := obj.(*object.String); ok {
			return s.String()
		}
		return fmt.Sprintf("<%s>", obj.Head().Category)
	}
	return val.Kind().String()
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
