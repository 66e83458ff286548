package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recera/uimacro/cmd/uimacro/internal/build"
	"github.com/recera/uimacro/cmd/uimacro/internal/ui"
	"github.com/recera/uimacro/pkg/compiler"
	"github.com/recera/uimacro/pkg/spec"
)

type inspectParam struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

type inspectRule struct {
	Property   string            `json:"property,omitempty"`
	Target     string            `json:"target"`
	Match      string            `json:"match,omitempty"`
	Inner      string            `json:"inner,omitempty"`
	Outer      string            `json:"outer,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Fallback   bool              `json:"fallback,omitempty"`
}

type inspectReport struct {
	Component   string                `json:"component"`
	Params      []inspectParam        `json:"params"`
	Rules       []inspectRule         `json:"rules"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
	Output      string                `json:"output"`
}

func newInspectCommand() *cobra.Command {
	var (
		flags      projectFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the rules, parameters and macro of one component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			c, err := newCompiler(cfg)
			if err != nil {
				return err
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			comp, err := spec.Parse(build.ComponentName(args[0]), string(src))
			if err != nil {
				return err
			}
			result, err := c.Compile(comp)
			if err != nil {
				return err
			}

			report := newInspectReport(result)
			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	return cmd
}

func newInspectReport(r *compiler.Result) *inspectReport {
	report := &inspectReport{
		Component:   r.Component.Name,
		Params:      make([]inspectParam, 0, len(r.Params)),
		Rules:       make([]inspectRule, 0),
		Diagnostics: r.Diagnostics,
		Output:      r.Output,
	}
	for _, p := range r.Params {
		report.Params = append(report.Params, inspectParam{Name: p.Name, Required: p.Required, Default: p.Default})
	}
	for _, tf := range r.Component.Transformations() {
		rule := inspectRule{
			Property: tf.Property,
			Target:   tf.Target,
			Fallback: tf.Fallback,
		}
		if tf.Match != nil {
			rule.Match = tf.Match.String()
		}
		if tf.Inner != nil {
			rule.Inner = tf.Inner.String()
		}
		if tf.Outer != nil {
			rule.Outer = tf.Outer.String()
		}
		if len(tf.Attributes) > 0 {
			rule.Attributes = make(map[string]string, len(tf.Attributes))
			for _, a := range tf.Attributes {
				rule.Attributes[a.Name] = a.Value.String()
			}
		}
		report.Rules = append(report.Rules, rule)
	}
	return report
}

func printReport(w io.Writer, r *inspectReport) {
	fmt.Fprintln(w, ui.Title("Component %s", r.Component))

	fmt.Fprintln(w, "Parameters:")
	if len(r.Params) == 0 {
		fmt.Fprintln(w, ui.Muted("  none"))
	}
	for _, p := range r.Params {
		switch {
		case p.Required:
			fmt.Fprintf(w, "  %s %s\n", p.Name, ui.Muted("required"))
		case p.Default != nil:
			fmt.Fprintf(w, "  %s %s\n", p.Name, ui.Muted("default %v", p.Default))
		default:
			fmt.Fprintf(w, "  %s\n", p.Name)
		}
	}

	fmt.Fprintln(w, "\nRules:")
	for _, rule := range r.Rules {
		owner := rule.Property
		if owner == "" {
			owner = "children"
		}
		var parts []string
		if rule.Inner != "" {
			parts = append(parts, "inner "+rule.Inner)
		}
		if rule.Outer != "" {
			parts = append(parts, "outer "+rule.Outer)
		}
		names := make([]string, 0, len(rule.Attributes))
		for name := range rule.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("@%s %s", name, rule.Attributes[name]))
		}
		line := fmt.Sprintf("  %-12s %-24s %s", owner, rule.Target, strings.Join(parts, "; "))
		if rule.Match != "" {
			line += ui.Muted(" if %s", rule.Match)
		}
		if rule.Fallback {
			line += ui.Muted(" (missing)")
		}
		fmt.Fprintln(w, line)
	}

	for _, d := range r.Diagnostics {
		fmt.Fprintln(w, ui.Warning("⚠️  %s", d))
	}

	fmt.Fprintln(w, "\nMacro:")
	fmt.Fprintln(w, ui.Box(r.Output))
}
