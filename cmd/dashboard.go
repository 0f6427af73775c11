package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/logger"
	"github.com/polkafarm/polkafarm/internal/ui"
)

const logFile = "polkafarm.log"

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive farm dashboard",
	Long: `Full-screen dashboard: connect, switch network, watch balances, stake and
withdraw. Logs go to ` + logFile + ` in the config directory while it runs.

Keys:
  c connect   w switch network   s stake   m max   enter submit   esc cancel
  x withdraw all   r refresh   t theme   q quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := logger.ToFile(filepath.Join(cfg.Dir(), logFile), verbose)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := signalContext()
		defer cancel()

		events, err := connector.Watch(ctx, cfg.Dir())
		if err != nil {
			log := logger.With("cmd")
			log.Warn().Err(err).Msg("watching config dir")
			events = nil
		}

		svc := newService()
		defer svc.Close()

		return ui.RunDashboard(ctx, svc, ui.DashboardOptions{
			Interval: cfg.RefreshEvery(),
			Dark:     cfg.DarkMode,
			OnTheme:  saveTheme,
			Events:   events,
		})
	},
}

func saveTheme(dark bool) error {
	cfg.DarkMode = dark
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}
