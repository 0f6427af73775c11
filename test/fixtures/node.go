// Package fixtures provides an in-process farm node for tests: a JSON-RPC
// server that answers the calls polkafarm makes and keeps a tiny ledger of
// stakes.
package fixtures

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/contract"
)

// PrivateKey is a well-known development key; Account is its address.
const PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var Account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// Ether returns n whole units in wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// FarmNode is a fake EVM node hosting the farm contracts.
type FarmNode struct {
	URL string

	mu           sync.Mutex
	chainID      int64
	balance      *big.Int
	staked       *big.Int
	token        *big.Int
	total        *big.Int
	rate         *big.Int
	noStakeView  bool   // s(address) reverts
	estimateErr  string // revert reason returned by eth_estimateGas
	failReceipts bool   // mined transactions report status 0
	calls        map[string]int
	sent         []*types.Transaction
	receipts     map[common.Hash]bool
}

// NewFarmNode starts a node on chainID with a funded Account: 10 native,
// 2 staked, 5 reward tokens and a pool of 100.
func NewFarmNode(t *testing.T, chainID int64) *FarmNode {
	t.Helper()
	n := &FarmNode{
		chainID:  chainID,
		balance:  Ether(10),
		staked:   Ether(2),
		token:    Ether(5),
		total:    Ether(100),
		rate:     big.NewInt(1_000_000_000_000),
		calls:    make(map[string]int),
		receipts: make(map[common.Hash]bool),
	}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	n.URL = srv.URL
	return n
}

// SetBalance sets the native balance of Account.
func (n *FarmNode) SetBalance(v *big.Int) { n.mu.Lock(); n.balance = v; n.mu.Unlock() }

// SetStaked sets Account's stake.
func (n *FarmNode) SetStaked(v *big.Int) { n.mu.Lock(); n.staked = v; n.mu.Unlock() }

// HideStakes makes s(address) revert, as on pools with a private mapping.
func (n *FarmNode) HideStakes() { n.mu.Lock(); n.noStakeView = true; n.mu.Unlock() }

// RevertEstimates makes gas estimation revert with reason.
func (n *FarmNode) RevertEstimates(reason string) { n.mu.Lock(); n.estimateErr = reason; n.mu.Unlock() }

// FailReceipts makes mined transactions report failure.
func (n *FarmNode) FailReceipts() { n.mu.Lock(); n.failReceipts = true; n.mu.Unlock() }

// Staked returns Account's current stake.
func (n *FarmNode) Staked() *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.staked)
}

// Calls returns how often a JSON-RPC method was called.
func (n *FarmNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Sent returns the broadcast transactions.
func (n *FarmNode) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (n *FarmNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	result, rerr := n.handle(req)
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *FarmNode) handle(req rpcRequest) (interface{}, *rpcError) {
	switch req.Method {
	case "eth_chainId":
		return hexutil.EncodeBig(big.NewInt(n.chainID)), nil
	case "eth_blockNumber":
		return "0x1b4", nil
	case "eth_getBalance":
		return hexutil.EncodeBig(n.balance), nil
	case "eth_gasPrice":
		return "0x3b9aca00", nil
	case "eth_getTransactionCount":
		return hexutil.EncodeUint64(uint64(len(n.sent))), nil
	case "eth_estimateGas":
		if n.estimateErr != "" {
			return nil, revertError(n.estimateErr)
		}
		return "0x15f90", nil
	case "eth_call":
		return n.call(req.Params)
	case "eth_sendRawTransaction":
		return n.send(req.Params)
	case "eth_getTransactionReceipt":
		var hash common.Hash
		if len(req.Params) > 0 {
			json.Unmarshal(req.Params[0], &hash) //nolint:errcheck
		}
		ok, known := n.receipts[hash]
		if !known {
			return nil, nil
		}
		return receiptJSON(hash, ok), nil
	}
	return nil, &rpcError{Code: -32601, Message: "method not found"}
}

func (n *FarmNode) call(params []json.RawMessage) (interface{}, *rpcError) {
	var msg struct {
		To    *common.Address `json:"to"`
		Input hexutil.Bytes   `json:"input"`
		Data  hexutil.Bytes   `json:"data"`
	}
	if len(params) == 0 || json.Unmarshal(params[0], &msg) != nil {
		return nil, &rpcError{Code: -32602, Message: "invalid params"}
	}
	data := msg.Input
	if len(data) == 0 {
		data = msg.Data
	}
	if len(data) < 4 {
		return "0x", nil
	}

	method, ok := lookup(data[:4])
	if !ok {
		return nil, revertError("")
	}

	var out []interface{}
	switch method.Name {
	case "name":
		out = []interface{}{"PolkaFarm Token"}
	case "symbol":
		out = []interface{}{"PLKF"}
	case "decimals":
		out = []interface{}{uint8(18)}
	case "balanceOf":
		out = []interface{}{n.token}
	case "total":
		out = []interface{}{n.total}
	case "rate":
		out = []interface{}{n.rate}
	case "s":
		if n.noStakeView {
			return nil, revertError("")
		}
		out = []interface{}{n.staked}
	default:
		return "0x", nil
	}
	packed, err := method.Outputs.Pack(out...)
	if err != nil {
		return nil, &rpcError{Code: -32000, Message: err.Error()}
	}
	return hexutil.Encode(packed), nil
}

func (n *FarmNode) send(params []json.RawMessage) (interface{}, *rpcError) {
	var raw hexutil.Bytes
	if len(params) == 0 || json.Unmarshal(params[0], &raw) != nil {
		return nil, &rpcError{Code: -32602, Message: "invalid params"}
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, &rpcError{Code: -32000, Message: err.Error()}
	}
	n.sent = append(n.sent, tx)

	success := !n.failReceipts
	if success && len(tx.Data()) >= 4 {
		if m, ok := lookup(tx.Data()[:4]); ok {
			switch m.Name {
			case "stake":
				n.staked = new(big.Int).Add(n.staked, tx.Value())
				n.total = new(big.Int).Add(n.total, tx.Value())
				n.balance = new(big.Int).Sub(n.balance, tx.Value())
			case "exit":
				n.total = new(big.Int).Sub(n.total, n.staked)
				n.balance = new(big.Int).Add(n.balance, n.staked)
				n.staked = new(big.Int)
			}
		}
	}
	n.receipts[tx.Hash()] = success
	return tx.Hash().Hex(), nil
}

func lookup(selector []byte) (*abi.Method, bool) {
	for _, id := range []string{contract.TokenBuiltin, contract.StakingBuiltin} {
		b, ok := contract.GetBuiltin(id)
		if !ok {
			continue
		}
		if m, err := b.ABI.MethodById(selector); err == nil {
			return m, true
		}
	}
	return nil, false
}

func revertError(reason string) *rpcError {
	e := &rpcError{Code: 3, Message: "execution reverted"}
	if reason == "" {
		return e
	}
	strType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: strType}}.Pack(reason)
	e.Message = "execution reverted: " + reason
	e.Data = hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
	return e
}

func receiptJSON(hash common.Hash, ok bool) map[string]interface{} {
	status := "0x1"
	if !ok {
		status = "0x0"
	}
	return map[string]interface{}{
		"type":              "0x2",
		"status":            status,
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         "0x" + strings.Repeat("0", 512),
		"logs":              []interface{}{},
		"transactionHash":   hash.Hex(),
		"contractAddress":   nil,
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x3b9aca00",
		"blockHash":         "0x" + strings.Repeat("cd", 32),
		"blockNumber":       "0x1b5",
		"transactionIndex":  "0x0",
	}
}

// Configure points cfg at the node as the active and farm network.
func (n *FarmNode) Configure(t *testing.T, cfg *config.Config, network config.NetworkEntry) {
	t.Helper()
	if err := cfg.AddNetwork(network); err != nil {
		t.Fatalf("adding network: %v", err)
	}
	cfg.CustomRPCs = map[string][]string{network.Name: {n.URL}}
	cfg.Network = network.Name
	cfg.FarmNetwork = network.Name
}

// WestendEntry is the default farm network in config form.
var WestendEntry = config.NetworkEntry{
	Name:           "westend-asset-hub",
	DisplayName:    "Asset-Hub Westend Testnet",
	ChainID:        420420421,
	CurrencyName:   "Westend",
	CurrencySymbol: "WND",
	Decimals:       18,
	RPCs:           []string{"https://westend-asset-hub-eth-rpc.polkadot.io"},
	Explorer:       "https://assethub-westend.subscan.io",
	Testnet:        true,
}
