package connector

import (
	"errors"
	"fmt"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/wallet"
)

var (
	// ErrKeystoreUnavailable means no key storage could be opened, so no
	// wallet can be used at all.
	ErrKeystoreUnavailable = wallet.ErrKeystoreUnavailable
	ErrNoAccounts          = errors.New("No accounts found. Import a wallet with `polkafarm wallet import` and try again.") //nolint:staticcheck
	ErrConnectionRejected  = errors.New("connection rejected")
	ErrNetworkDetection    = errors.New("could not detect network")
	ErrNotConnected        = errors.New("not connected, run `polkafarm connect` first")
	ErrAddNetwork          = errors.New("add network failed")
	ErrSwitchNetwork       = errors.New("switch network failed")
)

// WrongNetworkError reports a wallet connected to a chain other than the farm's.
type WrongNetworkError struct {
	Want *chain.Network
	Got  int64
}

func (e *WrongNetworkError) Error() string {
	return fmt.Sprintf("Please switch to %s network (Chain ID: %d)", e.Want.DisplayName, e.Want.ChainID)
}

// networkError carries a user-facing message while matching a sentinel.
type networkError struct {
	kind  error
	msg   string
	cause error
}

func (e *networkError) Error() string        { return e.msg }
func (e *networkError) Is(target error) bool { return target == e.kind }
func (e *networkError) Unwrap() error        { return e.cause }

func addNetworkError(name string, cause error) error {
	return &networkError{
		kind:  ErrAddNetwork,
		msg:   fmt.Sprintf("Failed to add %s network. Please add it manually.", name),
		cause: cause,
	}
}

func switchNetworkError(cause error) error {
	return &networkError{
		kind:  ErrSwitchNetwork,
		msg:   "Failed to switch network. Please try manually.",
		cause: cause,
	}
}
