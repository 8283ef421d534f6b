package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/bunnylol/bunnylol/internal/bundle"
	"github.com/bunnylol/bunnylol/internal/config"
	"github.com/bunnylol/bunnylol/internal/registry"
)

// coreBundleManifest is the packaging manifest for the plugins shipped
// in plugins/core (spec §2 component G: "content, not mechanism").
const coreBundleManifest = "plugins/core/manifest.yaml"

//go:embed templates/*
var templateFS embed.FS

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Inspect or scaffold bunnylol plugins",
	}
	cmd.AddCommand(newPluginListCmd())
	cmd.AddCommand(newPluginInitCmd())
	return cmd
}

func newPluginListCmd() *cobra.Command {
	var (
		configPath   string
		bundled      bool
		manifestPath string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Build the registry from disk and print every active binding",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bundled {
				return listBundled(cmd, manifestPath)
			}

			cfg, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			reg := registry.New(cfg, nil)
			if err := reg.Reload(); err != nil {
				return fmt.Errorf("build registry: %w", err)
			}
			for _, p := range reg.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-40s %s\n",
					strings.Join(p.Bindings, ","), p.Description, p.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.toml")
	cmd.Flags().BoolVar(&bundled, "bundled", false, "list the core bundle's manifest instead of building the live registry")
	cmd.Flags().StringVar(&manifestPath, "manifest", coreBundleManifest, "path to the core bundle manifest, used with --bundled")
	return cmd
}

// listBundled prints the core bundle's manifest without loading a
// single script through the Script Host — it's a packaging-time
// inventory, not a resolution-time source of truth (the registry never
// reads this file; see internal/bundle).
func listBundled(cmd *cobra.Command, manifestPath string) error {
	m, err := bundle.Load(manifestPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (bundle %s %s)\n", manifestPath, m.Name, m.Version)
	for _, p := range m.Plugins {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s\n", strings.Join(p.Bindings, ","), p.File)
	}
	return nil
}

func newPluginInitCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "init <binding>",
		Short: "Scaffold a new plugin script in the user plugin directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			binding := strings.ToLower(strings.TrimSpace(args[0]))
			if binding == "" {
				return fmt.Errorf("binding must not be empty")
			}
			if description == "" {
				description = fmt.Sprintf("A bunnylol plugin for %s", binding)
			}

			dir := config.UserPluginDir()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create plugin dir %s: %w", dir, err)
			}
			path := filepath.Join(dir, binding+".js")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}

			content, err := templateFS.ReadFile("templates/plugin.js.tmpl")
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			tmpl, err := template.New("plugin").Parse(string(content))
			if err != nil {
				return fmt.Errorf("parse template: %w", err)
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			defer f.Close()

			data := map[string]string{
				"Name":        binding,
				"NameTitle":   toTitle(binding),
				"Description": description,
			}
			if err := tmpl.Execute(f, data); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "description shown in the bindings index")
	return cmd
}

func toTitle(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, "")
}
