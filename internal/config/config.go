package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultNetwork     = "ethereum"
	defaultFarmNetwork = "westend-asset-hub"
	defaultAlgorithm   = "fastest"
	defaultPriceSource = "static"
	defaultInterval    = 10

	// EnvPrefix is prepended to every environment override, e.g. POLKAFARM_NETWORK.
	EnvPrefix = "POLKAFARM"

	configFile  = "config.json"
	walletsFile = "wallets.json"
	sessionFile = "session.json"
)

// ErrUnknownKey is returned by Set for keys that cannot be set from the CLI.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to ~/.polkafarm.
// Values from config.json are overlaid with POLKAFARM_* environment variables.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".polkafarm")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg, err := read(dir, true)
	if err != nil {
		return nil, err
	}
	onDisk, err := read(dir, false)
	if err != nil {
		return nil, err
	}

	cfg.configDir = dir
	if cfg.stored, err = fieldsOf(onDisk); err != nil {
		return nil, err
	}
	if cfg.baseline, err = fieldsOf(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// read decodes config.json over the defaults, with env overrides when env is set.
func read(dir string, env bool) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, configFile))
	v.SetConfigType("json")
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.PresumedStakes == nil {
		cfg.PresumedStakes = make(map[string]string)
	}
	return cfg, nil
}

// Override sets key for this process only. Save keeps the file's value for
// it unless the key is changed again afterwards.
func (c *Config) Override(key, value string) error {
	if err := c.Set(key, value); err != nil {
		return err
	}
	cur, err := fieldsOf(c)
	if err != nil {
		return err
	}
	top, _, _ := strings.Cut(key, ".")
	if c.baseline == nil {
		c.baseline = make(fields)
	}
	c.baseline[top] = cur[top]
	if c.overrides == nil {
		c.overrides = make(map[string]string)
	}
	c.overrides[key] = value
	return nil
}

// Reload re-reads config.json in place, e.g. after another process changed
// it. Overrides set on this process stay in effect.
func (c *Config) Reload() error {
	fresh, err := Load(c.configDir)
	if err != nil {
		return err
	}
	overrides := c.overrides
	*c = *fresh
	for k, v := range overrides {
		if err := c.Override(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the config to disk. Keys this process did not change keep
// their value from the file, so env and flag overrides are never persisted.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	cur, err := fieldsOf(c)
	if err != nil {
		return err
	}
	out := make(fields, len(cur))
	for k, v := range cur {
		if stored, ok := c.stored[k]; ok && bytes.Equal(v, c.baseline[k]) {
			out[k] = stored
			continue
		}
		out[k] = v
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	persisted := &Config{}
	if err := json.Unmarshal(raw, persisted); err != nil {
		return err
	}
	if err := saveJSON(c.Path(), persisted); err != nil {
		return err
	}
	c.stored, c.baseline = out, cur
	return nil
}

// Path returns the location of config.json.
func (c *Config) Path() string {
	return filepath.Join(c.configDir, configFile)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// RefreshEvery returns the balance polling interval.
func (c *Config) RefreshEvery() time.Duration {
	if c.RefreshInterval <= 0 {
		return DefaultRefreshInterval
	}
	return time.Duration(c.RefreshInterval) * time.Second
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// AddNetwork stores a user-added network. Re-adding a chain ID replaces the entry.
func (c *Config) AddNetwork(n NetworkEntry) error {
	if n.Name == "" || n.ChainID <= 0 {
		return fmt.Errorf("network needs a name and a positive chain id")
	}
	idx := slices.IndexFunc(c.CustomNetworks, func(e NetworkEntry) bool {
		return e.ChainID == n.ChainID || e.Name == n.Name
	})
	if idx >= 0 {
		c.CustomNetworks[idx] = n
		return nil
	}
	c.CustomNetworks = append(c.CustomNetworks, n)
	return nil
}

// PresumedStake returns the configured fallback stake for an address, if any.
func (c *Config) PresumedStake(address string) (string, bool) {
	for k, v := range c.PresumedStakes {
		if strings.EqualFold(k, address) {
			return v, true
		}
	}
	return "", false
}

// Set assigns a scalar key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "network":
		c.Network = value
	case "farm_network":
		c.FarmNetwork = value
	case "default_wallet":
		c.DefaultWallet = value
	case "token_address":
		c.TokenAddress = value
	case "staking_address":
		c.StakingAddress = value
	case "rpc_algorithm":
		switch value {
		case "fastest", "round-robin", "failover":
			c.RPCAlgorithm = value
		default:
			return fmt.Errorf("invalid rpc_algorithm %q (fastest, round-robin, failover)", value)
		}
	case "price_source":
		switch value {
		case "static", "coingecko":
			c.PriceSource = value
		default:
			return fmt.Errorf("invalid price_source %q (static, coingecko)", value)
		}
	case "prices.native_id":
		c.Prices.NativeID = value
	case "prices.token_id":
		c.Prices.TokenID = value
	case "refresh_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("refresh_interval must be a positive number of seconds")
		}
		c.RefreshInterval = n
	case "rpc_rate_limit", "prices.native_usd", "prices.token_usd":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number", key)
		}
		switch key {
		case "rpc_rate_limit":
			c.RPCRateLimit = f
		case "prices.native_usd":
			c.Prices.NativeUSD = f
		default:
			c.Prices.TokenUSD = f
		}
	case "dark_mode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("dark_mode must be true or false")
		}
		c.DarkMode = b
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// LoadWallets reads wallets.json.
func (c *Config) LoadWallets() (*WalletsFile, error) {
	return loadJSON[WalletsFile](filepath.Join(c.configDir, walletsFile))
}

// SaveWallets writes wallets.json.
func (c *Config) SaveWallets(wf *WalletsFile) error {
	return saveJSON(filepath.Join(c.configDir, walletsFile), wf)
}

// LoadSession reads session.json. A missing file yields a zero session.
func (c *Config) LoadSession() (*SessionFile, error) {
	return loadJSON[SessionFile](filepath.Join(c.configDir, sessionFile))
}

// SaveSession writes session.json.
func (c *Config) SaveSession(s *SessionFile) error {
	return saveJSON(filepath.Join(c.configDir, sessionFile), s)
}

// ClearSession removes session.json.
func (c *Config) ClearSession() error {
	err := os.Remove(filepath.Join(c.configDir, sessionFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// --- helpers ---

// fields is a config keyed by its top-level JSON names.
type fields map[string]json.RawMessage

func fieldsOf(c *Config) (fields, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", defaultNetwork)
	v.SetDefault("farm_network", defaultFarmNetwork)
	v.SetDefault("default_wallet", "")
	v.SetDefault("token_address", DefaultTokenAddress)
	v.SetDefault("staking_address", DefaultStakingAddress)
	v.SetDefault("rpc_algorithm", defaultAlgorithm)
	v.SetDefault("rpc_rate_limit", 0.0)
	v.SetDefault("refresh_interval", defaultInterval)
	v.SetDefault("dark_mode", false)
	v.SetDefault("price_source", defaultPriceSource)
	v.SetDefault("prices.native_usd", DefaultNativeUSD)
	v.SetDefault("prices.token_usd", DefaultTokenUSD)
	v.SetDefault("prices.native_id", "")
	v.SetDefault("prices.token_id", "")
	v.SetDefault("presumed_stakes", map[string]string{})
	v.SetDefault("custom_rpcs", map[string][]string{})
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
