package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys are the settings that may be stored in ~/.txome.yaml.
var configKeys = map[string]bool{
	"features":    true,
	"line-width":  true,
	"short-exon":  true,
	"threads":     true,
	"header-gene": true,
	"field-sep":   true,
	"kv-sep":      true,
	"verbose":     true,
	"log":         true,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage txome configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.txome.yaml.",
		Example: `  txome config                         # show all config
  txome config set line-width 80       # wrap FASTA lines at 80 bases
  txome config set features exon,CDS   # change the default target types
  txome config get threads             # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

// configPath returns the config file in use, defaulting to ~/.txome.yaml.
func configPath() (string, error) {
	if p := viper.ConfigFileUsed(); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".txome.yaml"), nil
}

// readStoredConfig returns the settings saved in path. Flags and environment
// are not included, so per-run values are never persisted.
func readStoredConfig(path string) (map[string]any, error) {
	settings := make(map[string]any)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if settings == nil {
		settings = make(map[string]any)
	}
	return settings, nil
}

func runConfigShow() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	settings, err := readStoredConfig(path)
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		fmt.Println("# No configuration set. Config file: ~/.txome.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	if !configKeys[key] {
		return &usageError{fmt.Errorf("unknown config key %q", key)}
	}

	cfgFile, err := configPath()
	if err != nil {
		return err
	}
	settings, err := readStoredConfig(cfgFile)
	if err != nil {
		return err
	}
	settings[key] = parseValue(value)
	viper.Set(key, settings[key])

	if err := writeConfig(cfgFile, settings); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

// parseValue converts boolean-like and numeric strings.
func parseValue(value string) any {
	switch value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

func writeConfig(path string, settings map[string]any) error {
	out, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func runConfigGet(key string) error {
	if !configKeys[key] {
		return &usageError{fmt.Errorf("unknown config key %q", key)}
	}
	path, err := configPath()
	if err != nil {
		return err
	}
	settings, err := readStoredConfig(path)
	if err != nil {
		return err
	}
	val, ok := settings[key]
	if !ok {
		return fmt.Errorf("key %q is not set in %s", key, path)
	}
	fmt.Println(val)
	return nil
}
