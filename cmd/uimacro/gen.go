package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/uimacro/cmd/uimacro/internal/build"
	"github.com/recera/uimacro/cmd/uimacro/internal/ui"
)

func newGenCommand() *cobra.Command {
	var (
		flags      projectFlags
		jsonOutput bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "gen [input-dir] [output-dir]",
		Short: "Compile every component in a directory to macros",
		Long: `Compiles each component file in the input directory into a macro file of
the same name in the output directory. Directories default to inputDir and
outputDir from uimacro.json.

A component that fails to compile is reported and skipped; the command exits
non-zero when any component failed.

Examples:
  uimacro gen                         # Use uimacro.json (or defaults)
  uimacro gen components templates    # Explicit directories
  uimacro gen --strict --json         # Fail on unresolved targets, JSON summary`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.InputDir = args[0]
			}
			if len(args) > 1 {
				cfg.OutputDir = args[1]
			}

			c, err := newCompiler(cfg)
			if err != nil {
				return err
			}
			buildCache := openCache(cfg)
			defer closeCache(buildCache)

			summary, err := newBuilder(cfg, c, buildCache).BuildAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal summary: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				printSummary(cmd, summary, quiet)
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d components failed", summary.Failed, len(summary.Files))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON summary to stdout")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report failures and warnings")

	return cmd
}

func printSummary(cmd *cobra.Command, summary *build.Summary, quiet bool) {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	for _, r := range summary.Files {
		if r.Err != nil {
			fmt.Fprintln(errOut, ui.Error("❌ %v", r.Err))
			continue
		}
		for _, d := range r.Diagnostics {
			fmt.Fprintln(errOut, ui.Warning("⚠️  %s", d))
		}
		if quiet {
			continue
		}
		note := ""
		if r.Cached {
			note = ui.Muted(" (cached)")
		}
		fmt.Fprintf(out, "✅ %s → %s%s\n", filepath.Base(r.Source), r.Output, note)
	}

	if quiet {
		return
	}
	fmt.Fprintln(out, ui.Muted("\n  %d compiled, %d cached, %d failed in %v",
		summary.Compiled, summary.Cached, summary.Failed, summary.Duration))
}
