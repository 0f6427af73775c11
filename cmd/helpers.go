package cmd

import (
	"context"
	"errors"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/contract"
	"github.com/polkafarm/polkafarm/internal/farm"
	"github.com/polkafarm/polkafarm/internal/logger"
	"github.com/polkafarm/polkafarm/internal/price"
	"github.com/polkafarm/polkafarm/internal/rpc"
	"github.com/polkafarm/polkafarm/internal/ui"
	"github.com/polkafarm/polkafarm/internal/wallet"
)

// signalContext is cancelled on Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newWalletManager opens the keystore and the wallets.json store. A missing
// keystore still allows watch-only use.
func newWalletManager() *wallet.Manager {
	opts := []wallet.Option{wallet.WithStore(wallet.NewConfigStore(cfg))}
	ks, err := wallet.OpenKeystore(cfg.Dir())
	if err != nil {
		log := logger.With("cmd")
		log.Warn().Err(err).Msg("keystore unavailable")
	} else {
		opts = append(opts, wallet.WithKeystore(ks))
	}
	return wallet.NewManager(opts...)
}

func newConnector() *connector.Connector {
	return connector.New(cfg, newWalletManager())
}

func newService() *farm.Service {
	return farm.New(cfg, newConnector(), price.NewSource(cfg), walletFlag)
}

// readyService restores the persisted session and requires it to be on the
// farm network.
func readyService(ctx context.Context) (*farm.Service, error) {
	svc := newService()
	view, err := svc.Resume(ctx)
	switch {
	case view == connector.ViewDashboard:
		return svc, nil
	case err != nil:
		svc.Close()
		return nil, err
	case view == connector.ViewDisconnected:
		svc.Close()
		return nil, connector.ErrNotConnected
	}
	svc.Close()
	return nil, farm.ErrNotReady
}

// farmReader dials the farm network read-only. No wallet is needed.
func farmReader(ctx context.Context) (*contract.Gateway, *chain.Network, func(), error) {
	conn := newConnector()
	target, err := conn.TargetNetwork()
	if err != nil {
		return nil, nil, nil, err
	}

	selCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	url, err := rpc.NewPicker(rpc.ParseAlgorithm(cfg.RPCAlgorithm)).Select(selCtx, conn.Endpoints(target))
	cancel()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := chain.Dial(ctx, url, chain.WithRateLimit(cfg.RPCRateLimit))
	if err != nil {
		return nil, nil, nil, err
	}
	gw := contract.NewGateway(client, farmAddresses(), nil, big.NewInt(target.ChainID))
	return gw, target, client.Close, nil
}

func farmAddresses() contract.Addresses {
	return contract.Addresses{
		Token:   common.HexToAddress(cfg.TokenAddress),
		Staking: common.HexToAddress(cfg.StakingAddress),
	}
}

// errLine renders a command error for the terminal.
func errLine(err error) string {
	var wrong *connector.WrongNetworkError
	if errors.As(err, &wrong) {
		return ui.Warn(wrong.Error()) + "\n" + ui.Hint("Run `polkafarm network switch`.")
	}
	return ui.Err(err.Error())
}

// txLink returns an explorer link for hash, or the hash itself.
func txLink(n *chain.Network, hash string) string {
	if n != nil {
		if u := n.TxURL(hash); u != "" {
			return u
		}
	}
	return hash
}
