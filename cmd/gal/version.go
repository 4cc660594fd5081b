package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/galang-lang/gal/code"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gal runtime and bytecode format version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gal runtime, bytecode format version %d\n", code.Version)
		},
	}
}
