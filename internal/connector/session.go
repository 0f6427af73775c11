package connector

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/contract"
	"github.com/polkafarm/polkafarm/internal/wallet"
)

// View is the screen a session should be shown on.
type View int

const (
	ViewDisconnected View = iota
	ViewWrongNetwork
	ViewDashboard
)

func (v View) String() string {
	switch v {
	case ViewWrongNetwork:
		return "wrong-network"
	case ViewDashboard:
		return "dashboard"
	default:
		return "disconnected"
	}
}

// Session is a live wallet connection.
type Session struct {
	Wallet      string
	Account     common.Address
	ChainID     int64
	Network     *chain.Network // network the wallet is on
	Target      *chain.Network // network the farm lives on
	RPCURL      string
	ReadOnly    bool
	ConnectedAt time.Time

	Farm   contract.Addresses
	Signer *wallet.Signer // nil for watch-only wallets
	Client *chain.Client
}

// OnTarget reports whether the wallet is on the farm's chain.
func (s *Session) OnTarget() bool {
	return s.Target != nil && s.ChainID == s.Target.ChainID
}

// Symbol is the native currency symbol of the farm chain.
func (s *Session) Symbol() string {
	if s.Target != nil && s.Target.Currency.Symbol != "" {
		return s.Target.Currency.Symbol
	}
	return s.Network.Currency.Symbol
}

// Decimals is the native currency precision of the farm chain.
func (s *Session) Decimals() int {
	if s.Target != nil && s.Target.Currency.Decimals > 0 {
		return s.Target.Currency.Decimals
	}
	return 18
}

// Gateway binds the farm contracts over the session's client.
func (s *Session) Gateway() *contract.Gateway {
	var signer contract.TxSigner
	if s.Signer != nil {
		signer = s.Signer
	}
	return contract.NewGateway(s.Client, s.Farm, signer, big.NewInt(s.ChainID))
}

// Close releases the RPC connection.
func (s *Session) Close() {
	if s != nil && s.Client != nil {
		s.Client.Close()
	}
}

// ViewFor maps a connect result to the screen to show.
func ViewFor(s *Session, err error) View {
	if s == nil {
		return ViewDisconnected
	}
	var wrong *WrongNetworkError
	if errors.As(err, &wrong) || !s.OnTarget() {
		return ViewWrongNetwork
	}
	return ViewDashboard
}
