package cmd

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/portfolio"
	"github.com/polkafarm/polkafarm/test/fixtures"
)

func withConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load(t.TempDir())
	require.NoError(t, err)
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestTrimHexPrefix(t *testing.T) {
	assert.Equal(t, "abcd", trimHexPrefix("0xabcd"))
	assert.Equal(t, "abcd", trimHexPrefix(" 0Xabcd\n"))
	assert.Equal(t, "abcd", trimHexPrefix("abcd"))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, validateKey(fixtures.PrivateKey))
	assert.NoError(t, validateKey("0x"+fixtures.PrivateKey))
	assert.Error(t, validateKey("nope"))
}

func TestTxLink(t *testing.T) {
	hash := "0x" + "ab"
	assert.Equal(t, "https://assethub-westend.subscan.io/tx/0xab", txLink(&chain.WestendAssetHub, hash))
	assert.Equal(t, hash, txLink(&chain.Network{}, hash))
	assert.Equal(t, hash, txLink(nil, hash))
}

func TestErrLineWrongNetwork(t *testing.T) {
	err := &connector.WrongNetworkError{Want: &chain.WestendAssetHub, Got: 1}
	out := errLine(err)
	assert.Contains(t, out, "Please switch to Asset-Hub Westend Testnet network (Chain ID: 420420421)")
	assert.Contains(t, out, "polkafarm network switch")

	assert.Contains(t, errLine(errors.New("boom")), "boom")
}

func TestThemeName(t *testing.T) {
	assert.Equal(t, "dark", themeName(true))
	assert.Equal(t, "light", themeName(false))
}

func TestSaveThemePersists(t *testing.T) {
	withConfig(t)
	require.NoError(t, saveTheme(true))

	reloaded, err := config.Load(cfg.Dir())
	require.NoError(t, err)
	assert.True(t, reloaded.DarkMode)
}

func TestNetworkFlagSurvivesThemeSave(t *testing.T) {
	withConfig(t)
	old := networkFlag
	networkFlag = "moonbeam"
	t.Cleanup(func() { networkFlag = old })

	require.NoError(t, applyFlags())
	assert.Equal(t, "moonbeam", cfg.Network)
	require.NoError(t, saveTheme(true))

	reloaded, err := config.Load(cfg.Dir())
	require.NoError(t, err)
	assert.Equal(t, "ethereum", reloaded.Network)
	assert.True(t, reloaded.DarkMode)
}

func TestKnownNetworkUnknownNameHint(t *testing.T) {
	withConfig(t)
	_, err := knownNetwork("nowhere")
	require.Error(t, err)
	assert.Equal(t, "unknown network \"nowhere\": run `polkafarm network list`", err.Error())

	n, err := knownNetwork("paseo-asset-hub")
	require.NoError(t, err)
	assert.Equal(t, "paseo-asset-hub", n.Name)
}

func TestFarmAddressesFromConfig(t *testing.T) {
	withConfig(t)
	a := farmAddresses()
	assert.Equal(t, common.HexToAddress(config.DefaultTokenAddress), a.Token)
	assert.Equal(t, common.HexToAddress(config.DefaultStakingAddress), a.Staking)
}

type fakeStats struct{ err error }

func (f fakeStats) TokenName(context.Context) (string, error)   { return "PolkaFarm", f.err }
func (f fakeStats) TokenSymbol(context.Context) (string, error) { return "PLKF", nil }
func (f fakeStats) TokenDecimals(context.Context) (uint8, error) { return 18, nil }
func (f fakeStats) TotalStaked(context.Context) (*big.Int, error) {
	return fixtures.Ether(100), nil
}
func (f fakeStats) RewardRate(context.Context) (*big.Int, error) { return big.NewInt(1e12), nil }

func TestFarmInfo(t *testing.T) {
	withConfig(t)
	rows, err := farmInfo(context.Background(), fakeStats{}, &chain.WestendAssetHub)
	require.NoError(t, err)

	got := map[string]string{}
	for _, r := range rows {
		got[r[0]] = r[1]
	}
	assert.Equal(t, "Asset-Hub Westend Testnet (420420421)", got["Network"])
	assert.Equal(t, "PolkaFarm (PLKF)", got["Token"])
	assert.Equal(t, "100.0 WND", got["Total staked"])
	assert.Equal(t, "1.00e-6 PLKF/block", got["Reward rate"])
}

func TestFarmInfoError(t *testing.T) {
	withConfig(t)
	_, err := farmInfo(context.Background(), fakeStats{err: errors.New("reverted")}, &chain.WestendAssetHub)
	assert.ErrorContains(t, err, "token name")
}

func TestRenderPortfolio(t *testing.T) {
	n := chain.WestendAssetHub
	sess := &connector.Session{Network: &n, Target: &n, ChainID: n.ChainID}
	snap := &portfolio.Snapshot{
		Account: fixtures.Account,
		Balances: portfolio.Balances{
			Native: fixtures.Ether(10), Staked: fixtures.Ether(2), Token: fixtures.Ether(5),
			StakeSource: portfolio.SourcePresumed,
		},
		Stats: portfolio.FarmStats{
			TotalStaked: fixtures.Ether(100), RewardRate: big.NewInt(1e12),
			TokenSymbol: "PLKF", TokenDecimals: 18,
		},
	}
	out := renderPortfolio(sess, snap, portfolio.Derived{Native: 10, Staked: 2, Token: 5, Total: 100, Share: 2, APY: 23.8})
	assert.Contains(t, out, "10.0000 WND")
	assert.Contains(t, out, "(presumed)")
	assert.Contains(t, out, "2.00%")
	assert.Contains(t, out, "0xf39F...2266")
}
