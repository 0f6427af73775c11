package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/rpc"
	"github.com/polkafarm/polkafarm/internal/ui"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

func knownNetwork(name string) (*chain.Network, error) {
	n, err := connector.New(cfg, nil).Registry().GetByName(name)
	if err != nil {
		if n, cerr := chain.Catalog(name); cerr == nil {
			return n, nil
		}
		return nil, fmt.Errorf("unknown network %q: run `polkafarm network list`", name)
	}
	return n, nil
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Long: `Add a custom RPC URL. Custom URLs replace the built-in ones for that network.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if _, err := knownNetwork(name); err != nil {
			return err
		}
		if err := cfg.AddRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(name), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if err := cfg.RemoveRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", name, url)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list <network>",
	Short: "List the RPCs for a network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := knownNetwork(args[0])
		if err != nil {
			return err
		}
		fmt.Println(ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s", n.DisplayName)))

		custom := cfg.GetRPCs(n.Name)
		fmt.Println(ui.StyleHeader.Render("Built-in RPCs:"))
		for _, r := range n.RPCs {
			note := ""
			if len(custom) > 0 {
				note = ui.Meta(" (overridden)")
			}
			fmt.Printf("  %s%s\n", r, note)
		}
		if len(custom) > 0 {
			fmt.Println(ui.StyleHeader.Render("Custom RPCs:"))
			for _, r := range custom {
				fmt.Printf("  %s\n", r)
			}
		}
		return nil
	},
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:   "benchmark [network]",
	Short: "Benchmark the RPCs for a network (default: farm network)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.FarmNetwork
		if len(args) == 1 {
			name = args[0]
		}
		n, err := knownNetwork(name)
		if err != nil {
			return err
		}
		urls := newConnector().Endpoints(n)

		fmt.Printf("%s\n\n", ui.StyleTitle.Render(fmt.Sprintf("Benchmarking %s RPCs...", n.DisplayName)))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		results := rpc.Benchmark(ctx, urls)

		best := ""
		if ep, err := rpc.NewPicker(rpc.AlgorithmFastest).Pick(rpc.ResultsToEndpoints(results)); err == nil {
			best = ep.URL
		}

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 48},
			{Title: "Latency", Width: 10},
			{Title: "Block #", Width: 12},
			{Title: "Status", Width: 10},
		})
		for _, r := range results {
			status := ui.StyleSuccess.Render("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := fmt.Sprintf("%d", r.BlockNumber)
			if r.Err != nil {
				status, latency, block = ui.StyleError.Render("down"), "—", "—"
			}
			if r.URL == best {
				status += ui.Meta(" ★")
			}
			t.AddRow(ui.Row{r.URL, latency, block, status})
		}
		fmt.Println(t.Render())
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:       "algorithm <fastest|round-robin|failover>",
	Short:     "Set the RPC selection algorithm",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"fastest", "round-robin", "failover"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set("rpc_algorithm", args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC algorithm set to %q", args[0])))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}
