package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show current configuration",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys:
  network, farm_network, default_wallet, token_address, staking_address,
  rpc_algorithm, rpc_rate_limit, refresh_interval, dark_mode, price_source,
  prices.native_usd, prices.token_usd, prices.native_id, prices.token_id`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

var configThemeCmd = &cobra.Command{
	Use:       "theme [light|dark]",
	Short:     "Show or set the colour theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(themeName(cfg.DarkMode))
			return nil
		}
		var dark bool
		switch args[0] {
		case "dark":
			dark = true
		case "light":
		default:
			return fmt.Errorf("unknown theme %q (light, dark)", args[0])
		}
		if err := saveTheme(dark); err != nil {
			return err
		}
		ui.ApplyTheme(dark)
		fmt.Println(ui.Success("Theme set to " + themeName(dark)))
		return nil
	},
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configThemeCmd)
}
