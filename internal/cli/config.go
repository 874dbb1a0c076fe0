// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flurchat/internal/config"
)

const redactedValue = "[REDACTED]"

func newConfigCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
		Long: `Show and edit the configuration. Keys use dot notation, for example
api.base_url or storage.backend. "config show" prints the effective
settings after environment variables and flags are applied; "config set"
edits the file only.`,
	}

	cmd.AddCommand(
		newConfigShowCommand(rt),
		newConfigPathCommand(rt),
		newConfigInitCommand(rt),
		newConfigGetCommand(rt),
		newConfigSetCommand(rt),
	)
	return cmd
}

// configFilePath is the file "config set" and "config init" write.
func (rt *runtime) configFilePath() (string, error) {
	if rt.opts.configPath != "" {
		return rt.opts.configPath, nil
	}
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath, nil
		}
	}
	return tomlPath, nil
}

// displayValue formats a setting, hiding credentials.
func displayValue(key string, value interface{}) string {
	s := fmt.Sprint(value)
	if config.IsSecretKey(key) && s != "" {
		return redactedValue
	}
	return s
}

// =============================================================================
// SHOW / PATH / GET
// =============================================================================

func newConfigShowCommand(rt *runtime) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := config.GetAllKeys()
			values := make(map[string]string, len(keys))
			for _, key := range keys {
				v, err := rt.cfg.Get(key)
				if err != nil {
					return err
				}
				values[key] = displayValue(key, v)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, "config show", values)
			}

			section := ""
			for _, key := range keys {
				name, field, _ := strings.Cut(key, ".")
				if name != section {
					if section != "" {
						fmt.Fprintln(out)
					}
					fmt.Fprintln(out, TitleStyle.Render("["+name+"]"))
					section = name
				}
				fmt.Fprintln(out, LabelStyle.Width(18).Render(field)+ValueStyle.Render(values[key]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func newConfigPathCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config, data and log locations",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := rt.configFilePath()
			if err != nil {
				return err
			}
			dataDir, err := rt.cfg.DataDir()
			if err != nil {
				return err
			}
			logPath, err := rt.cfg.LogPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, RenderLabel("Config", cfgPath))
			fmt.Fprintln(out, RenderLabel("Data", dataDir))
			fmt.Fprintln(out, RenderLabel("Log", logPath))
			return nil
		},
	}
}

func newConfigGetCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one setting",
		Args:  exactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return config.GetAllKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rt.cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], v))
			return nil
		},
	}
}

// =============================================================================
// INIT / SET
// =============================================================================

func newConfigInitCommand(rt *runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rt.configFilePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
			}
			if err := saveConfigFile(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderStatus("ok"), "wrote", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigSetCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting in the config file",
		Args:  minimumArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return config.GetAllKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rt.configFilePath()
			if err != nil {
				return err
			}

			// Edit the file's own values, not the env and flag overrides
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if err := loadConfigFile(cfg, path); err != nil {
					return err
				}
			}

			key, value := args[0], strings.Join(args[1:], " ")
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfigFile(cfg, path); err != nil {
				return err
			}

			stored, err := cfg.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, displayValue(key, stored))
			return nil
		},
	}
}

func loadConfigFile(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.LoadJSON(cfg, path)
	}
	return config.LoadTOML(cfg, path)
}

func saveConfigFile(cfg *config.Config, path string) error {
	if path == "" {
		return errors.New("no config path")
	}
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}
