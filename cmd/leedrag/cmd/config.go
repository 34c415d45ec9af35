package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/leedrag/configs"
	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/output"
)

func newConfigCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the leedrag configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/leedrag/config.yaml)
  3. Project config (.leedrag.yaml)
  4. Environment variables (LEEDRAG_*)`,
		Example: `  # Create user config with defaults
  leedrag config init

  # Show effective configuration (merged from all sources)
  leedrag config show

  # Print user config file path
  leedrag config path

  # Restore the most recent user config backup
  leedrag config restore`,
	}

	cmd.AddCommand(newConfigInitCmd(global))
	cmd.AddCommand(newConfigShowCmd(global))
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd(global *globalFlags) *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file populated with the defaults.

The file is created at ~/.config/leedrag/config.yaml
(or $XDG_CONFIG_HOME/leedrag/config.yaml if XDG_CONFIG_HOME is set).
With --force an existing file is backed up before being replaced.
With --project a commented .leedrag.yaml is written to --dir instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			if project {
				path, err := initProjectConfig(global.projectDir, force)
				if err != nil {
					return err
				}
				out.Successf("Created project config at %s", path)
				return nil
			}
			path, backup, err := config.InitUserConfig(force)
			if err != nil {
				return err
			}
			if backup != "" {
				out.Statusf("↺", "Backed up previous config to %s", backup)
			}
			out.Successf("Created user config at %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&project, "project", false, "Create .leedrag.yaml in the project directory")

	return cmd
}

func initProjectConfig(dir string, force bool) (string, error) {
	path := filepath.Join(dir, config.ProjectConfigFile)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("project config already exists at %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return path, fmt.Errorf("failed to write project config: %w", err)
	}
	return path, nil
}

func newConfigShowCmd(global *globalFlags) *cobra.Command {
	var (
		jsonOutput bool
		source     string
		outFile    string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources.

--source selects what to print: merged (default), defaults, user or project.
The user and project sources print the file as written.
--output writes the merged or default configuration to a YAML file instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, global, jsonOutput, source, outFile)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults, user, project")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Write the configuration to this YAML file")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the user config from a backup",
		Long: `Replace the user config with a backup written by 'config init --force'.

Without an argument the most recent backup is restored. The current file
is backed up first, so a restore can itself be undone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			backups, err := config.ListUserConfigBackups()
			if err != nil {
				return err
			}
			if list {
				if len(backups) == 0 {
					out.Status("", "No config backups found.")
					return nil
				}
				out.Statusf("", "%d backup(s), newest first:", len(backups))
				out.Code(strings.Join(backups, "\n"))
				return nil
			}

			var target string
			switch {
			case len(args) == 1:
				target = args[0]
			case len(backups) > 0:
				target = backups[0]
			default:
				return fmt.Errorf("no config backups found in %s", config.GetUserConfigDir())
			}

			if err := config.RestoreUserConfig(target); err != nil {
				return err
			}
			out.Successf("Restored user config from %s", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List available backups instead of restoring")

	return cmd
}

func runConfigShow(cmd *cobra.Command, global *globalFlags, jsonOutput bool, source, outFile string) error {
	var cfg *config.Config

	switch source {
	case "merged":
		c, err := loadConfig(global)
		if err != nil {
			return err
		}
		cfg = c
	case "defaults":
		cfg = config.NewConfig()
	case "user":
		return printConfigFile(cmd, config.GetUserConfigPath())
	case "project":
		return printConfigFile(cmd, filepath.Join(global.projectDir, config.ProjectConfigFile))
	default:
		return fmt.Errorf("unknown source %q (use merged, defaults, user or project)", source)
	}

	if outFile != "" {
		if err := cfg.WriteYAML(outFile); err != nil {
			return err
		}
		output.New(cmd.OutOrStdout()).Successf("Wrote %s config to %s", source, outFile)
		return nil
	}
	if jsonOutput {
		return output.New(cmd.OutOrStdout()).JSON(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func printConfigFile(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no config file at %s", path)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
