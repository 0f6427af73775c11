package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/logger"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/polkafarm/polkafarm/cmd.Version=1.2.3" .
var Version = "0.1.0"

// EnvConfigDir overrides the --config flag.
const EnvConfigDir = "POLKAFARM_CONFIG_DIR"

var (
	cfgDir      string
	cfg         *config.Config
	verbose     bool
	networkFlag string
	walletFlag  string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "polkafarm",
	Short: "Stake WND, earn PLKF",
	Long: `polkafarm is a terminal front end for the PolkaFarm staking pool on
Westend Asset Hub.

  Connect a wallet, switch it to the farm network, watch your balances and
  stake or withdraw WND for PLKF rewards.

Start with:
  polkafarm wallet import farmer
  polkafarm connect --switch
  polkafarm dashboard`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		logger.Init(verbose)

		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return applyFlags()
	},
}

// applyFlags puts per-invocation flags over the loaded config. They are
// never written back by cfg.Save.
func applyFlags() error {
	if networkFlag == "" {
		return nil
	}
	return cfg.Override("network", networkFlag)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	if envDir := os.Getenv(EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.polkafarm)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&networkFlag, "network", "", "network the wallet is on, for this call only")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet name (default: config)")

	rootCmd.AddCommand(
		connectCmd,
		disconnectCmd,
		statusCmd,
		networkCmd,
		walletCmd,
		balanceCmd,
		infoCmd,
		stakeCmd,
		exitCmd,
		tokenCmd,
		rpcCmd,
		dashboardCmd,
		configCmd,
	)
}
