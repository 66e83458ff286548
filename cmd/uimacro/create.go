package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recera/uimacro/cmd/uimacro/internal/config"
	"github.com/recera/uimacro/cmd/uimacro/internal/scaffold"
	"github.com/recera/uimacro/cmd/uimacro/internal/ui"
)

func newCreateCommand() *cobra.Command {
	var (
		projectDir  string
		dir         string
		tag         string
		props       []string
		slots       []string
		children    bool
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Scaffold a new component file",
		Long: `Writes a starter component file into the input directory. Properties are
given as name[:kind][!] where kind is text (default), attribute or class
and a trailing ! marks the property required.

Examples:
  uimacro create alert --prop title! --prop tone:class --slot actions --children
  uimacro create -i                   # Interactive wizard`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			cfg, err := config.Load(projectDir)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if dir == "" {
				dir = (&projectFlags{projectDir: projectDir}).resolve(cfg.InputDir)
			}
			ext := ".html"
			if len(cfg.Extensions) > 0 {
				ext = cfg.Extensions[0]
			}

			var c scaffold.Component
			if interactive {
				c, err = ui.RunWizard(name)
				if err != nil {
					return err
				}
			} else {
				if name == "" {
					return fmt.Errorf("component name required (or use -i)")
				}
				c = scaffold.Component{Name: name, Tag: tag, Slots: slots, Children: children}
				for _, s := range props {
					p, err := scaffold.ParseProp(s)
					if err != nil {
						return err
					}
					c.Props = append(c.Props, p)
				}
			}

			path, err := scaffold.Write(dir, ext, &c, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("✅ Created %s", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "config", ".", "Directory containing "+config.FileName)
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to write into (default: inputDir from config)")
	cmd.Flags().StringVar(&tag, "tag", "div", "Root element tag")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "Property as name[:text|attribute|class][!] (repeatable)")
	cmd.Flags().StringArrayVar(&slots, "slot", nil, "Named slot (repeatable)")
	cmd.Flags().BoolVar(&children, "children", false, "Accept caller children through an unnamed slot")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Use the interactive wizard")

	return cmd
}
