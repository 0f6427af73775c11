package farm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/contract"
	"github.com/polkafarm/polkafarm/internal/portfolio"
)

// Outcome messages shown after a transaction.
const (
	StakeSucceeded = "Staking successful!"
	ExitSucceeded  = "Withdrawal successful!"
	StakeFailed    = "Staking failed. Please try again."
)

// StakeFailure turns a stake error into a user message. Input problems are
// reported as they are.
func StakeFailure(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrInvalidAmount):
		return "Please enter a valid amount."
	case errors.Is(err, portfolio.ErrInsufficientBalance):
		return "Insufficient balance."
	case errors.Is(err, contract.ErrReadOnly):
		return "This wallet is watch-only and cannot stake."
	}
	return StakeFailed
}

// ExitFailure turns an exit error into a user message.
func ExitFailure(err error, symbol string) string {
	var nothing *portfolio.NothingStakedError
	switch {
	case errors.As(err, &nothing):
		return nothing.Error()
	case errors.Is(err, contract.ErrReadOnly):
		return "This wallet is watch-only and cannot withdraw."
	case contract.IsRevert(err), errors.Is(err, chain.ErrTxReverted):
		return fmt.Sprintf("Withdrawal failed. Please make sure you have %s staked and try again.", symbol)
	}
	msg := err.Error()
	if reason := contract.RevertReason(err); reason != "" && !strings.Contains(msg, reason) {
		msg = reason
	}
	return "Withdrawal failed. Error: " + msg
}
