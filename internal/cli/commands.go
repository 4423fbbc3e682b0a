package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/config"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/method"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify configuration",
		Long:  "Display current configuration, or use subcommands to modify it.\nWhen run without subcommands, shows the current configuration.\nEvery key can also be set with a SALAT_<KEY> environment variable.",
		RunE:  runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Long: fmt.Sprintf("Set a configuration value. Valid keys: %s\n\nExamples:\n  salat config set latitude 24.7136\n  salat config set longitude 46.6753\n  salat config set timezone Asia/Riyadh\n  salat config set method 4\n  salat config set time_format 12h\n  salat config set prayers Fajr,Dhuhr,Asr,Maghrib,Isha\n  salat config set orange_minutes 45",
			strings.Join(config.ValidKeys, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset config to defaults",
		Long:  "Delete the config file and restore all settings to defaults.",
		Args:  cobra.NoArgs,
		RunE:  runConfigReset,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	})

	return cmd
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Configuration (%s)\n\n", path)

	for _, key := range config.ValidKeys {
		val, _ := cfg.Get(key)
		fmt.Printf("  %-14s %s\n", key, configValue(key, val))
	}
	return nil
}

// configValue renders a config value for display, adding labels for method
// and school.
func configValue(key, val string) string {
	if val == "" {
		return display.Dim("(not set)")
	}
	switch key {
	case "method":
		return formatMethodValue(val)
	case "school":
		return formatSchoolValue(val)
	}
	return val
}

// runConfigSet sets a config key to the given value. Only the file is read
// and written back, so environment overrides are never persisted.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	path, err := config.Path()
	if err != nil {
		return err
	}

	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// runConfigReset deletes the config file.
func runConfigReset(cmd *cobra.Command, args []string) error {
	if err := config.Reset(); err != nil {
		return err
	}
	fmt.Println("Configuration reset to defaults.")
	return nil
}

// runConfigPath prints the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// formatMethodValue adds the method name to the numeric value.
func formatMethodValue(val string) string {
	id, err := strconv.Atoi(val)
	if err != nil {
		return val
	}
	if m, ok := method.Lookup(id); ok {
		return fmt.Sprintf("%s (%s)", val, m.Name)
	}
	return val
}

// formatSchoolValue adds the school name to the numeric value.
func formatSchoolValue(val string) string {
	switch val {
	case "0":
		return "0 (Shafi)"
	case "1":
		return "1 (Hanafi)"
	default:
		return val
	}
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List all calculation methods",
		Long:  "Print the table of supported calculation methods with their twilight angles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Supported calculation methods:")
			fmt.Println()

			tbl := display.NewTable([]string{"ID", "Name", "Angles"})
			for i, m := range method.All() {
				tbl.AddRow([]string{strconv.Itoa(m.ID), m.Name, m.Describe()})
				if m.ID == method.Default {
					tbl.SetHighlightRow(i)
				}
			}
			fmt.Print(tbl.Render())

			fmt.Println()
			fmt.Println("Use --method <ID> to select a calculation method.")
			fmt.Printf("If omitted, method %d (%s) is used.\n", method.Default, method.Resolve(method.Default).Name)
			return nil
		},
	}
}
