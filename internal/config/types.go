package config

// Config holds all polkafarm configuration.
type Config struct {
	Network         string              `json:"network"          mapstructure:"network"`      // chain the wallet is currently on
	FarmNetwork     string              `json:"farm_network"     mapstructure:"farm_network"` // chain the farm contracts live on
	DefaultWallet   string              `json:"default_wallet"   mapstructure:"default_wallet"`
	TokenAddress    string              `json:"token_address"    mapstructure:"token_address"`
	StakingAddress  string              `json:"staking_address"  mapstructure:"staking_address"`
	RPCAlgorithm    string              `json:"rpc_algorithm"    mapstructure:"rpc_algorithm"`    // "fastest" | "round-robin" | "failover"
	RPCRateLimit    float64             `json:"rpc_rate_limit"   mapstructure:"rpc_rate_limit"`   // requests per second, 0 = unlimited
	RefreshInterval int                 `json:"refresh_interval" mapstructure:"refresh_interval"` // seconds
	DarkMode        bool                `json:"dark_mode"        mapstructure:"dark_mode"`
	PriceSource     string              `json:"price_source"     mapstructure:"price_source"` // "static" | "coingecko"
	Prices          Prices              `json:"prices"           mapstructure:"prices"`
	PresumedStakes  map[string]string   `json:"presumed_stakes"  mapstructure:"presumed_stakes"`
	CustomRPCs      map[string][]string `json:"custom_rpcs"      mapstructure:"custom_rpcs"`
	CustomNetworks  []NetworkEntry      `json:"custom_networks"  mapstructure:"custom_networks"`

	// internal: config dir path used for Save()
	configDir string
	// stored is config.json as read, without env or flag overrides.
	// baseline is what this process started from, overrides included.
	stored    fields
	baseline  fields
	overrides map[string]string
}

// Prices are the USD reference prices used for portfolio estimates.
type Prices struct {
	NativeUSD float64 `json:"native_usd" mapstructure:"native_usd"`
	TokenUSD  float64 `json:"token_usd"  mapstructure:"token_usd"`
	NativeID  string  `json:"native_id,omitempty" mapstructure:"native_id"` // CoinGecko id
	TokenID   string  `json:"token_id,omitempty"  mapstructure:"token_id"`
}

// NetworkEntry is a user-added network.
type NetworkEntry struct {
	Name           string   `json:"name"            mapstructure:"name"`
	DisplayName    string   `json:"display_name"    mapstructure:"display_name"`
	ChainID        int64    `json:"chain_id"        mapstructure:"chain_id"`
	CurrencyName   string   `json:"currency_name"   mapstructure:"currency_name"`
	CurrencySymbol string   `json:"currency_symbol" mapstructure:"currency_symbol"`
	Decimals       int      `json:"decimals"        mapstructure:"decimals"`
	RPCs           []string `json:"rpcs"            mapstructure:"rpcs"`
	Explorer       string   `json:"explorer"        mapstructure:"explorer"`
	Testnet        bool     `json:"testnet"         mapstructure:"testnet"`
}

// Wallet represents a stored wallet entry.
type Wallet struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Type      string `json:"type"`              // "watch-only" | "signing"
	KeyRef    string `json:"key_ref,omitempty"` // keychain reference for signing wallets
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// WalletsFile is the structure of wallets.json.
type WalletsFile struct {
	Wallets []Wallet `json:"wallets"`
}

// SessionFile is the structure of session.json: the last authorised connection.
type SessionFile struct {
	Wallet      string `json:"wallet"`
	Account     string `json:"account"`
	Network     string `json:"network"`
	ChainID     int64  `json:"chain_id"`
	ReadOnly    bool   `json:"read_only,omitempty"`
	ConnectedAt string `json:"connected_at"`
	Signature   string `json:"signature,omitempty"` // EIP-191 signature over the connect challenge

	SignedChainID int64 `json:"signed_chain_id,omitempty"`
}
