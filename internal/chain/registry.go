package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrChainNotFound is returned when a network is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Currency describes a network's native asset.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Network holds all metadata for a single EVM network.
type Network struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ChainID     int64    `json:"chain_id"`
	Currency    Currency `json:"currency"`
	RPCs        []string `json:"rpcs"`
	Explorer    string   `json:"explorer"`
	Testnet     bool     `json:"testnet"`
}

// HexChainID returns the chain ID in wallet notation, e.g. 0x190f1b45.
func (n *Network) HexChainID() string {
	return fmt.Sprintf("0x%x", n.ChainID)
}

// TxURL links a transaction hash on the network's explorer.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash
}

// Registry is the set of networks the wallet knows about.
type Registry struct {
	networks []Network
	byName   map[string]int
	byID     map[int64]int
}

// NewRegistry returns the built-in networks plus any user-added ones.
// Extra networks with a known name or chain ID replace the built-in entry.
func NewRegistry(extra ...Network) *Registry {
	r := &Registry{
		byName: make(map[string]int),
		byID:   make(map[int64]int),
	}
	for _, n := range builtinNetworks() {
		r.put(n)
	}
	for _, n := range extra {
		r.put(n)
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by its slug name (e.g. "westend-asset-hub").
func (r *Registry) GetByName(name string) (*Network, error) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return &r.networks[i], nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return &r.networks[i], nil
}

// Add registers a network for the lifetime of the registry.
func (r *Registry) Add(n Network) error {
	if n.Name == "" || n.ChainID <= 0 {
		return fmt.Errorf("network needs a name and a positive chain id")
	}
	r.put(n)
	return nil
}

func (r *Registry) put(n Network) {
	n.Name = strings.ToLower(n.Name)
	if i, ok := r.byID[n.ChainID]; ok {
		delete(r.byName, r.networks[i].Name)
		r.networks[i] = n
		r.byName[n.Name] = i
		return
	}
	if i, ok := r.byName[n.Name]; ok {
		delete(r.byID, r.networks[i].ChainID)
		r.networks[i] = n
		r.byID[n.ChainID] = i
		return
	}
	r.networks = append(r.networks, n)
	r.byName[n.Name] = len(r.networks) - 1
	r.byID[n.ChainID] = len(r.networks) - 1
}

// Catalog looks up a network definition that can be added to a wallet.
// These are the chains a farm may be deployed on.
func Catalog(name string) (*Network, error) {
	for _, n := range catalog() {
		if n.Name == strings.ToLower(name) {
			n := n
			return &n, nil
		}
	}
	return nil, ErrChainNotFound
}

// WestendAssetHub is the Asset-Hub Westend testnet, home of the default farm.
var WestendAssetHub = Network{
	Name:        "westend-asset-hub",
	DisplayName: "Asset-Hub Westend Testnet",
	ChainID:     420420421,
	Currency:    Currency{Name: "Westend", Symbol: "WND", Decimals: 18},
	RPCs:        []string{"https://westend-asset-hub-eth-rpc.polkadot.io"},
	Explorer:    "https://assethub-westend.subscan.io",
	Testnet:     true,
}

// PaseoAssetHub is the Paseo Asset Hub testnet.
var PaseoAssetHub = Network{
	Name:        "paseo-asset-hub",
	DisplayName: "Paseo Asset Hub",
	ChainID:     420420422,
	Currency:    Currency{Name: "Paseo", Symbol: "PAS", Decimals: 18},
	RPCs:        []string{"https://testnet-passet-hub-eth-rpc.polkadot.io"},
	Explorer:    "https://blockscout-passet-hub.parity-testnet.parity.io",
	Testnet:     true,
}

// --- network data ---

func catalog() []Network {
	return []Network{WestendAssetHub, PaseoAssetHub}
}

func builtinNetworks() []Network {
	return []Network{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1,
			Currency: Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			RPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer: "https://etherscan.io",
		},
		{
			Name: "moonbeam", DisplayName: "Moonbeam", ChainID: 1284,
			Currency: Currency{Name: "Glimmer", Symbol: "GLMR", Decimals: 18},
			RPCs:     []string{"https://rpc.api.moonbeam.network", "https://moonbeam-rpc.publicnode.com"},
			Explorer: "https://moonbeam.moonscan.io",
		},
		{
			Name: "local", DisplayName: "Local Node", ChainID: 31337,
			Currency: Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			RPCs:     []string{"http://127.0.0.1:8545"},
			Testnet:  true,
		},
	}
}
