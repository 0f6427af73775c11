package chain_test

import (
	"testing"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID int64
		symbol  string
	}{
		{"ethereum", 1, "ETH"},
		{"moonbeam", 1284, "GLMR"},
		{"local", 31337, "ETH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.chainID, n.ChainID)
			assert.Equal(t, tt.symbol, n.Currency.Symbol)
		})
	}
}

func TestRegistryDoesNotKnowFarmChainUntilAdded(t *testing.T) {
	registry := chain.NewRegistry()

	_, err := registry.GetByChainID(420420421)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)

	require.NoError(t, registry.Add(chain.WestendAssetHub))
	n, err := registry.GetByChainID(420420421)
	require.NoError(t, err)
	assert.Equal(t, "westend-asset-hub", n.Name)
}

func TestRegistryExtraReplacesSameChainID(t *testing.T) {
	custom := chain.Network{Name: "MyLocal", ChainID: 31337, RPCs: []string{"http://localhost:9944"}}
	registry := chain.NewRegistry(custom)

	n, err := registry.GetByChainID(31337)
	require.NoError(t, err)
	assert.Equal(t, "mylocal", n.Name)

	_, err = registry.GetByName("local")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
	assert.Len(t, registry.All(), 3)
}

func TestRegistryAddRejectsIncomplete(t *testing.T) {
	assert.Error(t, chain.NewRegistry().Add(chain.Network{Name: "x"}))
}

func TestCatalog(t *testing.T) {
	n, err := chain.Catalog("Westend-Asset-Hub")
	require.NoError(t, err)
	assert.Equal(t, int64(420420421), n.ChainID)
	assert.Equal(t, "0x190f1b45", n.HexChainID())
	assert.Equal(t, "WND", n.Currency.Symbol)
	assert.Equal(t, 18, n.Currency.Decimals)

	_, err = chain.Catalog("nowhere")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestTxURL(t *testing.T) {
	n := chain.WestendAssetHub
	assert.Equal(t, "https://assethub-westend.subscan.io/tx/0xabc", n.TxURL("0xabc"))

	local, _ := chain.NewRegistry().GetByName("local")
	assert.Empty(t, local.TxURL("0xabc"))
}
