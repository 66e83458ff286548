package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/recera/uimacro/pkg/backend/jinja"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "uimacro",
		Short: "uimacro - compile UI components to template macros",
		Long: `uimacro compiles component files, HTML markup with YAML front matter
describing properties, slots and conditional rules, into reusable macros
for a server-side templating language.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newGenCommand())
	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newInspectCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
