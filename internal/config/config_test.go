package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ethereum", cfg.Network)
	assert.Equal(t, "westend-asset-hub", cfg.FarmNetwork)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, "static", cfg.PriceSource)
	assert.Equal(t, 10, cfg.RefreshInterval)
	assert.Equal(t, config.DefaultTokenAddress, cfg.TokenAddress)
	assert.Equal(t, config.DefaultStakingAddress, cfg.StakingAddress)
	assert.InDelta(t, 13.75, cfg.Prices.NativeUSD, 1e-9)
	assert.InDelta(t, 0.85, cfg.Prices.TokenUSD, 1e-9)
	assert.False(t, cfg.DarkMode)
	assert.Equal(t, config.DefaultRefreshInterval, cfg.RefreshEvery())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.Network = "westend-asset-hub"
	cfg.DefaultWallet = "farmer"
	cfg.RPCAlgorithm = "round-robin"
	cfg.DarkMode = true
	cfg.Prices.NativeUSD = 20

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "westend-asset-hub", reloaded.Network)
	assert.Equal(t, "farmer", reloaded.DefaultWallet)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.True(t, reloaded.DarkMode)
	assert.InDelta(t, 20, reloaded.Prices.NativeUSD, 1e-9)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	cfg.Network = "westend-asset-hub"
	require.NoError(t, cfg.Save())

	t.Setenv("POLKAFARM_NETWORK", "local")
	t.Setenv("POLKAFARM_REFRESH_INTERVAL", "3")
	t.Setenv("POLKAFARM_PRICES_TOKEN_USD", "1.5")

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", reloaded.Network)
	assert.Equal(t, 3, reloaded.RefreshInterval)
	assert.InDelta(t, 1.5, reloaded.Prices.TokenUSD, 1e-9)
}

func TestOverrideIsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.Override("network", "moonbeam"))
	assert.Equal(t, "moonbeam", cfg.Network)

	cfg.DarkMode = true
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", reloaded.Network)
	assert.True(t, reloaded.DarkMode)
	assert.Equal(t, "moonbeam", cfg.Network)
}

func TestOverriddenKeyChangedAgainIsPersisted(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.Override("network", "moonbeam"))
	cfg.Network = "westend-asset-hub"
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "westend-asset-hub", reloaded.Network)
}

func TestEnvOverrideIsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POLKAFARM_NETWORK", "local")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Network)
	cfg.DefaultWallet = "farmer"
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"network": "ethereum"`)
	assert.Contains(t, string(data), `"default_wallet": "farmer"`)
}

func TestReloadPicksUpOtherWritersAndKeepsOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Override("rpc_algorithm", "failover"))

	other, err := config.Load(dir)
	require.NoError(t, err)
	other.Network = "westend-asset-hub"
	other.DefaultWallet = "other"
	require.NoError(t, other.Save())

	require.NoError(t, cfg.Reload())
	assert.Equal(t, "westend-asset-hub", cfg.Network)
	assert.Equal(t, "other", cfg.DefaultWallet)
	assert.Equal(t, "failover", cfg.RPCAlgorithm)
	assert.Equal(t, dir, cfg.Dir())
}

func TestCorruptConfigErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestAddCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("westend-asset-hub", "https://custom.rpc"))
	assert.Contains(t, cfg.GetRPCs("westend-asset-hub"), "https://custom.rpc")

	assert.Error(t, cfg.AddRPC("westend-asset-hub", "https://custom.rpc"))
}

func TestRemoveCustomRPC(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	cfg.AddRPC("local", "https://rpc1") //nolint:errcheck
	cfg.AddRPC("local", "https://rpc2") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("local", "https://rpc1"))
	assert.Equal(t, []string{"https://rpc2"}, cfg.GetRPCs("local"))

	assert.Error(t, cfg.RemoveRPC("local", "https://nonexistent"))
}

func TestAddNetworkReplacesSameChainID(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	entry := config.NetworkEntry{Name: "westend-asset-hub", ChainID: 420420421, CurrencySymbol: "WND", Decimals: 18}
	require.NoError(t, cfg.AddNetwork(entry))
	entry.DisplayName = "Asset-Hub Westend Testnet"
	require.NoError(t, cfg.AddNetwork(entry))
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	require.Len(t, reloaded.CustomNetworks, 1)
	assert.Equal(t, int64(420420421), reloaded.CustomNetworks[0].ChainID)
	assert.Equal(t, "Asset-Hub Westend Testnet", reloaded.CustomNetworks[0].DisplayName)

	assert.Error(t, cfg.AddNetwork(config.NetworkEntry{Name: "bad"}))
}

func TestPresumedStakeIsCaseInsensitive(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())
	cfg.PresumedStakes["0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266"] = "1.0"

	v, ok := cfg.PresumedStake("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	assert.True(t, ok)
	assert.Equal(t, "1.0", v)

	_, ok = cfg.PresumedStake("0x0000000000000000000000000000000000000001")
	assert.False(t, ok)
}

func TestSetKeys(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	require.NoError(t, cfg.Set("dark_mode", "true"))
	assert.True(t, cfg.DarkMode)

	require.NoError(t, cfg.Set("refresh_interval", "30"))
	assert.Equal(t, 30, cfg.RefreshInterval)

	require.NoError(t, cfg.Set("prices.native_usd", "7.5"))
	assert.InDelta(t, 7.5, cfg.Prices.NativeUSD, 1e-9)

	assert.Error(t, cfg.Set("rpc_algorithm", "random"))
	assert.Error(t, cfg.Set("refresh_interval", "-1"))
	assert.ErrorIs(t, cfg.Set("nope", "x"), config.ErrUnknownKey)
}

func TestSessionRoundTrip(t *testing.T) {
	cfg, _ := config.Load(t.TempDir())

	s, err := cfg.LoadSession()
	require.NoError(t, err)
	assert.Empty(t, s.Account)

	require.NoError(t, cfg.SaveSession(&config.SessionFile{Wallet: "farmer", Account: "0xabc", ChainID: 420420421}))
	s, err = cfg.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "farmer", s.Wallet)

	require.NoError(t, cfg.ClearSession())
	require.NoError(t, cfg.ClearSession())
	s, _ = cfg.LoadSession()
	assert.Empty(t, s.Account)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
