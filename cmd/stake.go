package cmd

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/farm"
	"github.com/polkafarm/polkafarm/internal/logger"
	"github.com/polkafarm/polkafarm/internal/ui"
)

var (
	stakeMax bool
	stakeYes bool
	exitYes  bool
)

var stakeCmd = &cobra.Command{
	Use:   "stake [amount]",
	Short: "Stake native tokens in the farm",
	Long: `Stake WND in the pool to earn PLKF rewards.

--max stakes the whole balance minus ` + "0.01" + ` kept back for gas.

Examples:
  polkafarm stake 1.5
  polkafarm stake --max --yes`,
	Args: func(cmd *cobra.Command, args []string) error {
		if stakeMax {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		svc, err := readyService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		sess := svc.Session()

		var amount *big.Int
		if stakeMax {
			amount, err = svc.MaxStake(ctx)
		} else {
			amount, err = svc.ParseAmount(args[0])
		}
		if err == nil {
			err = svc.CheckStake(ctx, amount)
		}
		if err != nil {
			return errors.New(farm.StakeFailure(err))
		}

		shown := chain.FormatUnits(amount, sess.Decimals()) + " " + sess.Symbol()
		if !stakeYes && !ui.Confirm(fmt.Sprintf("Stake %s?", shown), fmt.Sprintf("From %s on %s", sess.Account.Hex(), sess.Network.DisplayName)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		spin := ui.NewSpinner(fmt.Sprintf("Staking %s...", shown))
		spin.Start()
		receipt, err := svc.Stake(ctx, amount)
		spin.Stop()
		if err != nil {
			log := logger.With("cmd")
			log.Debug().Err(err).Msg("stake failed")
			return errors.New(farm.StakeFailure(err))
		}
		fmt.Println(ui.Success(farm.StakeSucceeded))
		fmt.Println(ui.Hint(txLink(sess.Network, receipt.TxHash.Hex())))
		return nil
	},
}

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Withdraw your whole stake and rewards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		svc, err := readyService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		sess := svc.Session()
		if err := svc.CheckExit(ctx); err != nil {
			return errors.New(farm.ExitFailure(err, sess.Symbol()))
		}

		if !exitYes && !ui.ConfirmDanger("Withdraw everything from the farm?", "Your whole stake and pending rewards are sent back to "+sess.Account.Hex()) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		spin := ui.NewSpinner("Withdrawing...")
		spin.Start()
		receipt, err := svc.Exit(ctx)
		spin.Stop()
		if err != nil {
			log := logger.With("cmd")
			log.Debug().Err(err).Msg("exit failed")
			return errors.New(farm.ExitFailure(err, sess.Symbol()))
		}
		fmt.Println(ui.Success(farm.ExitSucceeded))
		fmt.Println(ui.Hint(txLink(sess.Network, receipt.TxHash.Hex())))
		return nil
	},
}

func init() {
	stakeCmd.Flags().BoolVar(&stakeMax, "max", false, "stake the whole balance minus the gas reserve")
	stakeCmd.Flags().BoolVarP(&stakeYes, "yes", "y", false, "skip confirmation")
	exitCmd.Flags().BoolVarP(&exitYes, "yes", "y", false, "skip confirmation")
}
