package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ontomap/am"
)

// AmCmd shows and validates configuration
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show and validate ontomap configuration",
	Long: `Display and validate ontomap configuration.

Configuration sources (in order of precedence):
1. Environment variables (ONTOMAP_* prefix)
2. Project config (nearest ontomap.toml)
3. User config (~/.ontomap/ontomap.toml)
4. System config (/etc/ontomap/ontomap.toml)
5. Default values

Examples:
  ontomap am show                 # Show effective configuration
  ontomap am show --format json   # Show configuration as JSON
  ontomap am where                # Show where each setting came from
  ontomap am validate             # Validate configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show the source of every setting",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# ontomap configuration\n%s", string(data))
	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json)", configFormat)
	}
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if path := am.ActiveConfigFile(); path != "" {
		pterm.Info.Printf("Active config file: %s\n", path)
	} else {
		pterm.Info.Println("No config file found, using defaults")
	}

	rows := [][]string{{"Key", "Value", "Source", "From"}}
	for _, s := range am.Settings(am.GetViper()) {
		rows = append(rows, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
