package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galang-lang/gal/gal"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [file.galc]",
		Short: "Load and execute a previously compiled bytecode chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpFile(args[0])
		},
	}
	return cmd
}

func dumpFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	v := gal.New()
	main, err := v.LoadBytecode(buf)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	results, err := v.Call(main, nil)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Println(displayValue(v, r))
	}
	return nil
}
