// Command gal runs and compiles GAL source files from the shell (spec
// §6.3's embedder surface, fronted here the way the teacher's pedumper
// fronts its PE parser: a cobra root command with one subcommand per
// verb).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:   "gal",
		Short: "Run and compile GAL scripts",
		Long:  "gal is the command-line front end for the GAL embeddable language runtime.",
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostics to stderr even on success")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
