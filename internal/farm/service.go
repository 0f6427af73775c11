// Package farm ties a wallet session to the farm contracts: it owns the
// connection, keeps the portfolio current and submits stake and exit
// transactions.
package farm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/logger"
	"github.com/polkafarm/polkafarm/internal/portfolio"
	"github.com/polkafarm/polkafarm/internal/price"
)

// ErrNotReady is returned for farm operations before the wallet is on the
// farm network.
var ErrNotReady = errors.New("wallet is not connected to the farm network")

// Service is a stateful farm client for one wallet.
type Service struct {
	cfg    *config.Config
	conn   *connector.Connector
	prices price.Source
	wallet string
	log    zerolog.Logger

	retryDelay time.Duration
	txTimeout  time.Duration

	mu   sync.Mutex
	sess *connector.Session
	view connector.View
	err  error
	sync *portfolio.Synchronizer
}

// Option configures a Service.
type Option func(*Service)

// WithRetryDelay overrides the pause before the initial load's retry.
func WithRetryDelay(d time.Duration) Option { return func(s *Service) { s.retryDelay = d } }

// WithTxTimeout overrides how long to wait for a transaction to be mined.
func WithTxTimeout(d time.Duration) Option { return func(s *Service) { s.txTimeout = d } }

// New creates a Service. walletName may be empty to use the default wallet.
func New(cfg *config.Config, conn *connector.Connector, prices price.Source, walletName string, opts ...Option) *Service {
	s := &Service{
		cfg:        cfg,
		conn:       conn,
		prices:     prices,
		wallet:     walletName,
		log:        logger.With("farm"),
		retryDelay: config.InitialLoadRetryDelay,
		txTimeout:  config.TxConfirmTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect authorises the wallet and returns the resulting view.
func (s *Service) Connect(ctx context.Context) (connector.View, error) {
	sess, err := s.conn.Connect(ctx, s.wallet)
	return s.adopt(sess, err), err
}

// Resume restores the persisted session, if there is one.
func (s *Service) Resume(ctx context.Context) (connector.View, error) {
	sess, err := s.conn.Resume(ctx)
	if errors.Is(err, connector.ErrNotConnected) {
		s.adopt(nil, nil)
		return connector.ViewDisconnected, nil
	}
	return s.adopt(sess, err), err
}

// SwitchNetwork moves the wallet to the farm network and reconnects.
func (s *Service) SwitchNetwork(ctx context.Context) (connector.View, error) {
	if _, err := s.conn.SwitchNetwork(ctx); err != nil {
		return s.View(), err
	}
	return s.Resume(ctx)
}

// Follow applies a wallet change made by another process and returns the
// resulting view. A new account is connected; any other change resumes the
// persisted session against the reloaded config.
func (s *Service) Follow(ctx context.Context, ev connector.Event) (connector.View, error) {
	if err := s.conn.Reload(); err != nil {
		return s.View(), err
	}
	if ev.Kind == connector.AccountsChanged {
		if ev.Account == "" {
			s.adopt(nil, nil)
			return connector.ViewDisconnected, nil
		}
		sf, err := s.cfg.LoadSession()
		if err != nil {
			return s.View(), fmt.Errorf("reading session: %w", err)
		}
		if !strings.EqualFold(sf.Account, ev.Account) {
			s.log.Info().Str("wallet", ev.Wallet).Str("account", ev.Account).Msg("account changed")
			sess, err := s.conn.Connect(ctx, ev.Wallet)
			return s.adopt(sess, err), err
		}
	}
	return s.Resume(ctx)
}

// Disconnect ends the session.
func (s *Service) Disconnect() error {
	s.adopt(nil, nil)
	return s.conn.Disconnect()
}

// adopt replaces the current session.
func (s *Service) adopt(sess *connector.Session, err error) connector.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil && s.sess != sess {
		s.sess.Close()
	}
	s.sess, s.err, s.sync = sess, err, nil
	s.view = connector.ViewFor(sess, err)

	if s.view == connector.ViewDashboard {
		s.sync = portfolio.New(sess.Client, sess.Gateway(), sess.Account,
			portfolio.WithPresumedStakes(s.cfg),
			portfolio.WithNativeDecimals(sess.Decimals()),
			portfolio.WithRetryDelay(s.retryDelay),
		)
	}
	return s.view
}

// View is the screen for the current state.
func (s *Service) View() connector.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Session returns the live session, or nil.
func (s *Service) Session() *connector.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *Service) synchronizer() (*portfolio.Synchronizer, *connector.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sync == nil {
		if s.err != nil {
			return nil, nil, s.err
		}
		return nil, nil, ErrNotReady
	}
	return s.sync, s.sess, nil
}

// Load takes the initial snapshot, retrying once.
func (s *Service) Load(ctx context.Context) (*portfolio.Snapshot, error) {
	sy, _, err := s.synchronizer()
	if err != nil {
		return nil, err
	}
	return sy.Load(ctx)
}

// Poll refreshes the snapshot unless a refresh is already running.
func (s *Service) Poll(ctx context.Context) (*portfolio.Snapshot, error) {
	sy, _, err := s.synchronizer()
	if err != nil {
		return nil, err
	}
	return sy.Poll(ctx)
}

// Watch polls every interval until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, interval time.Duration, fn func(*portfolio.Snapshot, error)) error {
	sy, _, err := s.synchronizer()
	if err != nil {
		return err
	}
	sy.Run(ctx, interval, fn)
	return nil
}

// Last returns the latest snapshot, or nil.
func (s *Service) Last() *portfolio.Snapshot {
	sy, _, err := s.synchronizer()
	if err != nil {
		return nil
	}
	return sy.Last()
}

// Quote returns the current USD reference prices.
func (s *Service) Quote(ctx context.Context) price.Quote {
	return s.prices.Quote(ctx)
}

// Derive computes display values for snap.
func (s *Service) Derive(ctx context.Context, snap *portfolio.Snapshot) portfolio.Derived {
	decimals := 18
	if sess := s.Session(); sess != nil {
		decimals = sess.Decimals()
	}
	return portfolio.Derive(snap, s.Quote(ctx), decimals)
}

// ParseAmount parses a user-entered native amount.
func (s *Service) ParseAmount(amount string) (*big.Int, error) {
	decimals := 18
	if sess := s.Session(); sess != nil {
		decimals = sess.Decimals()
	}
	return portfolio.ParseStake(amount, decimals)
}

// MaxStake is the largest stake that still leaves gas money.
func (s *Service) MaxStake(ctx context.Context) (*big.Int, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return portfolio.MaxStake(snap.Native, s.Session().Decimals()), nil
}

// CheckStake reports whether amount can be staked from the current balance.
func (s *Service) CheckStake(ctx context.Context, amount *big.Int) error {
	snap, err := s.current(ctx)
	if err != nil {
		return err
	}
	return portfolio.ValidateStake(amount, snap.Native)
}

// CheckExit reports whether there is a stake to withdraw.
func (s *Service) CheckExit(ctx context.Context) error {
	snap, err := s.current(ctx)
	if err != nil {
		return err
	}
	return portfolio.ValidateExit(snap.Staked, s.Session().Symbol())
}

// Stake sends amount to the pool and waits for it to be mined.
func (s *Service) Stake(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	if err := s.CheckStake(ctx, amount); err != nil {
		return nil, err
	}
	_, sess, err := s.synchronizer()
	if err != nil {
		return nil, err
	}
	tx, err := sess.Gateway().Staking.Stake(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("staking: %w", err)
	}
	return s.confirm(ctx, sess, tx)
}

// Exit withdraws the whole stake and rewards and waits for it to be mined.
func (s *Service) Exit(ctx context.Context) (*types.Receipt, error) {
	if err := s.CheckExit(ctx); err != nil {
		return nil, err
	}
	_, sess, err := s.synchronizer()
	if err != nil {
		return nil, err
	}
	tx, err := sess.Gateway().Staking.Exit(ctx)
	if err != nil {
		return nil, fmt.Errorf("exiting: %w", err)
	}
	return s.confirm(ctx, sess, tx)
}

// current returns the last snapshot, taking one if there is none yet.
func (s *Service) current(ctx context.Context) (*portfolio.Snapshot, error) {
	sy, _, err := s.synchronizer()
	if err != nil {
		return nil, err
	}
	if snap := sy.Last(); snap != nil {
		return snap, nil
	}
	return sy.Snapshot(ctx)
}

func (s *Service) confirm(ctx context.Context, sess *connector.Session, tx *types.Transaction) (*types.Receipt, error) {
	s.log.Info().Str("hash", tx.Hash().Hex()).Msg("waiting for confirmation")
	receipt, err := sess.Client.WaitForReceipt(ctx, tx.Hash(), s.txTimeout)
	if err != nil {
		return receipt, err
	}

	// Balances changed; refresh now rather than on the next tick.
	if sy, _, serr := s.synchronizer(); serr == nil {
		if _, err := sy.Snapshot(ctx); err != nil {
			s.log.Warn().Err(err).Msg("refresh after transaction")
		}
	}
	return receipt, nil
}

// Close releases the session.
func (s *Service) Close() {
	s.adopt(nil, nil)
}
