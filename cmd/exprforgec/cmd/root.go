package cmd

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "exprforgec",
	Short: "exprforge expression compiler demo CLI",
	Long: `exprforgec compiles a small expression or statement-block DSL
against a declaration table, preferring a direct bytecode emitter and
falling back to a reflective host-compiler evaluator for anything the
emitter's capability gate rejects.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
