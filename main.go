package main

import (
	"os"

	"github.com/pyrite-lang/pyrite/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "pyrite [subcommand]",
	Short:        "developer tools for the pyrite type engines",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.VerifyCmd)
}
