package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// ErrTxReverted is returned by WaitForReceipt when the transaction failed on chain.
var ErrTxReverted = errors.New("transaction reverted")

// receiptPollInterval is how often WaitForReceipt asks for the receipt.
var receiptPollInterval = 2 * time.Second

// Client is a rate-limited JSON-RPC client for an EVM network.
type Client struct {
	url     string
	eth     *ethclient.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Dial connects to the endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c := &Client{url: url, eth: ethclient.NewClient(rc)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// Close releases the underlying connection.
func (c *Client) Close() { c.eth.Close() }

// ChainID returns the chain ID reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.ChainID(ctx)
}

// BalanceAt returns the latest native balance of addr in wei.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.BalanceAt(ctx, addr, nil)
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.BlockNumber(ctx)
}

// CallContract executes a read-only call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.CallContract(ctx, msg, block)
}

// PendingNonceAt returns the next nonce for addr, counting pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.PendingNonceAt(ctx, addr)
}

// SuggestGasPrice returns the node's gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.SuggestGasPrice(ctx)
}

// EstimateGas simulates msg and returns the gas it needs.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.EstimateGas(ctx, msg)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.eth.SendTransaction(ctx, tx)
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	r, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return r, err
}

// WaitForReceipt polls every 2 s until the transaction is mined or timeout
// expires. Returns ErrTxReverted if the transaction failed (status 0).
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTxReverted, hash.Hex())
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined within %s", hash.Hex(), timeout)
		case <-ticker.C:
		}
	}
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *Client) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
