// Package connector turns a stored wallet into a live session on the farm's
// chain: resolving the account, detecting the network and switching to the
// farm network when needed.
package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/contract"
	"github.com/polkafarm/polkafarm/internal/logger"
	"github.com/polkafarm/polkafarm/internal/rpc"
	"github.com/polkafarm/polkafarm/internal/wallet"
)

// Connector manages the wallet connection lifecycle.
type Connector struct {
	cfg     *config.Config
	wallets *wallet.Manager
	picker  *rpc.Picker
	now     func() time.Time
	log     zerolog.Logger
}

// New creates a Connector over cfg and the wallet manager.
func New(cfg *config.Config, wallets *wallet.Manager) *Connector {
	return &Connector{
		cfg:     cfg,
		wallets: wallets,
		picker:  rpc.NewPicker(rpc.ParseAlgorithm(cfg.RPCAlgorithm)),
		now:     time.Now,
		log:     logger.With("connector"),
	}
}

// Registry returns the built-in networks plus the user-added ones.
func (c *Connector) Registry() *chain.Registry {
	extra := make([]chain.Network, 0, len(c.cfg.CustomNetworks))
	for _, e := range c.cfg.CustomNetworks {
		extra = append(extra, FromEntry(e))
	}
	return chain.NewRegistry(extra...)
}

// ActiveNetwork is the network the wallet is currently on.
func (c *Connector) ActiveNetwork() (*chain.Network, error) {
	return c.Registry().GetByName(c.cfg.Network)
}

// TargetNetwork is the farm's network, known to the wallet or not.
func (c *Connector) TargetNetwork() (*chain.Network, error) {
	if n, err := c.Registry().GetByName(c.cfg.FarmNetwork); err == nil {
		return n, nil
	}
	return chain.Catalog(c.cfg.FarmNetwork)
}

// Endpoints lists the RPC URLs for n. Custom RPCs replace the defaults.
func (c *Connector) Endpoints(n *chain.Network) []string {
	if custom := c.cfg.GetRPCs(n.Name); len(custom) > 0 {
		return custom
	}
	return n.RPCs
}

// Connect opens a session for the named wallet, or the default wallet when
// name is empty. A session on the wrong chain is returned together with a
// *WrongNetworkError.
func (c *Connector) Connect(ctx context.Context, name string) (*Session, error) {
	if c.wallets.Keystore() == nil {
		return nil, ErrKeystoreUnavailable
	}
	w, err := c.resolveWallet(name)
	if err != nil {
		return nil, err
	}

	var signer *wallet.Signer
	if w.CanSign() {
		signer = wallet.NewSigner(w, c.wallets.Keystore())
		if err := signer.Unlock(); err != nil {
			c.log.Debug().Err(err).Str("wallet", w.Name).Msg("unlock failed")
			return nil, fmt.Errorf("%w: %v", ErrConnectionRejected, err)
		}
	}

	sess, err := c.open(ctx, w, signer)
	if err != nil {
		return nil, err
	}

	sf := c.sessionFile(sess)
	if signer != nil {
		sig, err := signer.SignMessage(wallet.ConnectChallenge(sess.Account, sess.ChainID, sf.ConnectedAt))
		if err != nil {
			sess.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectionRejected, err)
		}
		sf.Signature = hexutil.Encode(sig)
		sf.SignedChainID = sess.ChainID
	}
	if err := c.cfg.SaveSession(sf); err != nil {
		sess.Close()
		return nil, fmt.Errorf("saving session: %w", err)
	}

	c.log.Info().Str("account", sess.Account.Hex()).Int64("chain_id", sess.ChainID).Msg("connected")
	return sess, c.checkTarget(sess)
}

// Resume reopens the persisted session without prompting for keys. Signing
// sessions must carry a valid connect signature.
func (c *Connector) Resume(ctx context.Context) (*Session, error) {
	sf, err := c.cfg.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if sf.Account == "" {
		return nil, ErrNotConnected
	}

	w, err := c.wallets.Get(sf.Wallet)
	if err != nil || !sameAccount(w.Address, sf.Account) {
		c.log.Warn().Str("wallet", sf.Wallet).Msg("session wallet gone, clearing session")
		_ = c.cfg.ClearSession()
		return nil, ErrNotConnected
	}

	var signer *wallet.Signer
	if w.CanSign() {
		if err := verifySession(sf); err != nil {
			c.log.Warn().Err(err).Msg("session signature invalid")
			_ = c.cfg.ClearSession()
			return nil, ErrNotConnected
		}
		signer = wallet.NewSigner(w, c.wallets.Keystore())
	}

	sess, err := c.open(ctx, w, signer)
	if err != nil {
		return nil, err
	}
	sess.ConnectedAt, _ = time.Parse(time.RFC3339, sf.ConnectedAt)

	if sess.ChainID != sf.ChainID || sess.Network.Name != sf.Network {
		c.log.Debug().Int64("from", sf.ChainID).Int64("to", sess.ChainID).Msg("chain changed since connect")
		sf.ChainID, sf.Network = sess.ChainID, sess.Network.Name
		if err := c.cfg.SaveSession(sf); err != nil {
			c.log.Warn().Err(err).Msg("updating session")
		}
	}
	return sess, c.checkTarget(sess)
}

// Reload picks up config and wallets written by another process.
func (c *Connector) Reload() error {
	if err := c.cfg.Reload(); err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	if c.wallets != nil {
		c.wallets.Reload()
	}
	c.picker = rpc.NewPicker(rpc.ParseAlgorithm(c.cfg.RPCAlgorithm))
	return nil
}

// Disconnect forgets the persisted session.
func (c *Connector) Disconnect() error {
	return c.cfg.ClearSession()
}

// SwitchNetwork makes the farm network the active one, adding it to the
// wallet first if it is unknown.
func (c *Connector) SwitchNetwork(ctx context.Context) (*chain.Network, error) {
	target, err := c.Registry().GetByName(c.cfg.FarmNetwork)
	if errors.Is(err, chain.ErrChainNotFound) {
		target, err = c.addTarget()
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, switchNetworkError(err)
	}

	prev := c.cfg.Network
	c.cfg.Network = target.Name
	if err := c.cfg.Save(); err != nil {
		c.cfg.Network = prev
		return nil, switchNetworkError(err)
	}

	sf, err := c.cfg.LoadSession()
	if err == nil && sf.Account != "" {
		sf.Network, sf.ChainID = target.Name, target.ChainID
		if err := c.cfg.SaveSession(sf); err != nil {
			return nil, switchNetworkError(err)
		}
	}
	c.log.Info().Str("network", target.Name).Msg("switched network")
	return target, nil
}

// addTarget registers the farm network from the catalog.
func (c *Connector) addTarget() (*chain.Network, error) {
	name := c.cfg.FarmNetwork
	n, err := chain.Catalog(name)
	if err != nil {
		return nil, addNetworkError(name, err)
	}
	if err := c.cfg.AddNetwork(ToEntry(*n)); err != nil {
		return nil, addNetworkError(n.DisplayName, err)
	}
	if err := c.cfg.Save(); err != nil {
		return nil, addNetworkError(n.DisplayName, err)
	}
	c.log.Info().Str("network", n.Name).Int64("chain_id", n.ChainID).Msg("added network")
	return n, nil
}

// --- internal ---

func (c *Connector) resolveWallet(name string) (*wallet.Wallet, error) {
	if name == "" {
		name = c.cfg.DefaultWallet
	}
	if name != "" {
		w, err := c.wallets.Get(name)
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", name, err)
		}
		return w, nil
	}
	w, err := c.wallets.Default()
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNoAccounts
	}
	return w, nil
}

// open dials the active network and reads the wallet's chain ID.
func (c *Connector) open(ctx context.Context, w *wallet.Wallet, signer *wallet.Signer) (*Session, error) {
	active, err := c.ActiveNetwork()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkDetection, err)
	}

	selCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	url, err := c.picker.Select(selCtx, c.Endpoints(active))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkDetection, err)
	}

	client, err := chain.Dial(ctx, url, chain.WithRateLimit(c.cfg.RPCRateLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkDetection, err)
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrNetworkDetection, err)
	}

	// The node is the source of truth for the chain the wallet is on.
	network := active
	if id.Int64() != active.ChainID {
		if n, err := c.Registry().GetByChainID(id.Int64()); err == nil {
			network = n
		}
	}

	target, err := c.TargetNetwork()
	if err != nil {
		c.log.Warn().Err(err).Str("farm_network", c.cfg.FarmNetwork).Msg("unknown farm network")
	}

	return &Session{
		Wallet:      w.Name,
		Account:     w.Account(),
		ChainID:     id.Int64(),
		Network:     network,
		Target:      target,
		RPCURL:      url,
		ReadOnly:    signer == nil,
		ConnectedAt: c.now().UTC().Truncate(time.Second),
		Farm: contract.Addresses{
			Token:   common.HexToAddress(c.cfg.TokenAddress),
			Staking: common.HexToAddress(c.cfg.StakingAddress),
		},
		Signer: signer,
		Client: client,
	}, nil
}

func (c *Connector) checkTarget(s *Session) error {
	if s.Target == nil {
		return &WrongNetworkError{Want: &chain.Network{Name: c.cfg.FarmNetwork, DisplayName: c.cfg.FarmNetwork}, Got: s.ChainID}
	}
	if !s.OnTarget() {
		return &WrongNetworkError{Want: s.Target, Got: s.ChainID}
	}
	return nil
}

func (c *Connector) sessionFile(s *Session) *config.SessionFile {
	return &config.SessionFile{
		Wallet:      s.Wallet,
		Account:     s.Account.Hex(),
		Network:     s.Network.Name,
		ChainID:     s.ChainID,
		ReadOnly:    s.ReadOnly,
		ConnectedAt: s.ConnectedAt.Format(time.RFC3339),
	}
}

func verifySession(sf *config.SessionFile) error {
	sig, err := hexutil.Decode(sf.Signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	account := common.HexToAddress(sf.Account)
	// ChainID follows later switches; the challenge keeps the connect-time chain.
	signer, err := wallet.VerifyMessage(wallet.ConnectChallenge(account, sf.SignedChainID, sf.ConnectedAt), sig)
	if err != nil {
		return err
	}
	if signer != account {
		return fmt.Errorf("signature from %s, session for %s", signer.Hex(), account.Hex())
	}
	return nil
}

func sameAccount(a, b string) bool {
	return common.IsHexAddress(a) && common.HexToAddress(a) == common.HexToAddress(b)
}

// ToEntry converts a network into its config form.
func ToEntry(n chain.Network) config.NetworkEntry {
	return config.NetworkEntry{
		Name:           n.Name,
		DisplayName:    n.DisplayName,
		ChainID:        n.ChainID,
		CurrencyName:   n.Currency.Name,
		CurrencySymbol: n.Currency.Symbol,
		Decimals:       n.Currency.Decimals,
		RPCs:           n.RPCs,
		Explorer:       n.Explorer,
		Testnet:        n.Testnet,
	}
}

// FromEntry converts a user-added network into a registry network.
func FromEntry(e config.NetworkEntry) chain.Network {
	decimals := e.Decimals
	if decimals == 0 {
		decimals = 18
	}
	display := e.DisplayName
	if display == "" {
		display = e.Name
	}
	return chain.Network{
		Name:        e.Name,
		DisplayName: display,
		ChainID:     e.ChainID,
		Currency:    chain.Currency{Name: e.CurrencyName, Symbol: e.CurrencySymbol, Decimals: decimals},
		RPCs:        e.RPCs,
		Explorer:    e.Explorer,
		Testnet:     e.Testnet,
	}
}
