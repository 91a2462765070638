package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/nativebridge/internal/config"
	"github.com/vango-dev/nativebridge/internal/errors"
)

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(configInitCmd(g), configShowCmd(g))
	return cmd
}

func configInitCmd(g *globals) *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write nativebridge.<format> with the default settings to the
working directory.

Examples:
  nativebridge config init
  nativebridge config init --format toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "toml", "yaml":
			default:
				return errors.New("B050").WithDetailf("unknown format %q", format).
					WithSuggestion("Use json, toml or yaml")
			}
			path := config.ConfigBaseName + "." + format
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New("B050").WithDetailf("%s already exists", path).
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			g.out.success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format: json, toml or yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func configShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(g.cfg)
			if err != nil {
				return errors.New("B050").Wrap(err)
			}
			source := g.cfg.Path()
			if source == "" {
				source = "defaults"
			}
			g.out.line("# %s", source)
			g.out.line("%s", data)
			return nil
		},
	}
}
