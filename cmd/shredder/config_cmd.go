package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"secureshred/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(g), newConfigShowCmd(g), newConfigProfilesCmd())
	return cmd
}

func newConfigInitCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exists, err := afero.Exists(afero.NewOsFs(), g.configPath)
			if err != nil {
				return errors.Wrapf(err, "stat %s", g.configPath)
			}
			if exists && !force {
				return errors.WithHint(
					errors.Newf("%s already exists", g.configPath),
					"pass --force to overwrite it")
			}
			if err := config.Save(config.Default(), g.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", g.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file, environment and defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return errors.Wrap(err, "marshal configuration")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in wipe profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range config.Profiles() {
				cfg := config.Default()
				if err := config.ApplyProfile(cfg, name); err != nil {
					return err
				}
				speed := "unlimited"
				if cfg.Wipe.MaxSpeedMBps > 0 {
					speed = fmt.Sprintf("%.0f MB/s", cfg.Wipe.MaxSpeedMBps)
				}
				fmt.Fprintf(out, "%-10s %d pass(es), %s\n", name, cfg.Wipe.Passes, speed)
			}
			return nil
		},
	}
}
