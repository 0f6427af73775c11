package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkafarm/polkafarm/internal/config"
)

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func TestWatchEmitsChainAndAccountChanges(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := Watch(ctx, cfg.Dir())
	require.NoError(t, err)

	cfg.Network = "moonbeam"
	require.NoError(t, cfg.Save())
	ev := nextEvent(t, events)
	assert.Equal(t, ChainChanged, ev.Kind)
	assert.Equal(t, "moonbeam", ev.Network)

	require.NoError(t, cfg.SaveSession(&config.SessionFile{Account: testAccount.Hex()}))
	ev = nextEvent(t, events)
	assert.Equal(t, AccountsChanged, ev.Kind)
	assert.Equal(t, testAccount.Hex(), ev.Account)

	require.NoError(t, cfg.ClearSession())
	ev = nextEvent(t, events)
	assert.Equal(t, AccountsChanged, ev.Kind)
	assert.Empty(t, ev.Account)

	cancel()
	for range events {
	}
}

func TestWatchDefaultWalletChangeCarriesNewAccount(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cfg.Save())
	beef := "0x000000000000000000000000000000000000bEEF"
	require.NoError(t, cfg.SaveWallets(&config.WalletsFile{Wallets: []config.Wallet{
		{Name: "farmer", Address: testAccount.Hex(), Type: "signing", IsDefault: true},
		{Name: "other", Address: beef, Type: "watch-only"},
	}}))
	require.NoError(t, cfg.SaveSession(&config.SessionFile{Wallet: "farmer", Account: testAccount.Hex()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := Watch(ctx, cfg.Dir())
	require.NoError(t, err)

	cfg.DefaultWallet = "other"
	require.NoError(t, cfg.Save())
	ev := nextEvent(t, events)
	assert.Equal(t, AccountsChanged, ev.Kind)
	assert.Equal(t, beef, ev.Account)
	assert.Equal(t, "other", ev.Wallet)

	cancel()
	for range events {
	}
}

func TestAccountEvent(t *testing.T) {
	farmer := watchState{account: "0xaa", sessionWallet: "farmer", defaultWallet: "farmer", defaultAccount: "0xaa"}

	tests := []struct {
		name    string
		cur     watchState
		want    Event
		changed bool
	}{
		{"unchanged", farmer, Event{}, false},
		{
			"disconnected",
			watchState{defaultWallet: "farmer", defaultAccount: "0xaa"},
			Event{Kind: AccountsChanged},
			true,
		},
		{
			"new default while connected",
			watchState{account: "0xaa", sessionWallet: "farmer", defaultWallet: "other", defaultAccount: "0xbb"},
			Event{Kind: AccountsChanged, Account: "0xbb", Wallet: "other"},
			true,
		},
		{
			"new session account",
			watchState{account: "0xbb", sessionWallet: "other", defaultWallet: "farmer", defaultAccount: "0xaa"},
			Event{Kind: AccountsChanged, Account: "0xbb", Wallet: "other"},
			true,
		},
		{
			"default removed",
			watchState{account: "0xaa", sessionWallet: "farmer"},
			Event{},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := accountEvent(farmer, tt.cur)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, got)
		})
	}

	_, changed := accountEvent(watchState{}, watchState{defaultWallet: "other", defaultAccount: "0xbb"})
	assert.False(t, changed, "a new default does not connect anyone")
}

func TestDefaultOf(t *testing.T) {
	ws := []config.Wallet{{Name: "a", Address: "0x1"}, {Name: "b", Address: "0x2", IsDefault: true}}
	assert.Equal(t, "a", defaultOf("a", ws).Name)
	assert.Equal(t, "b", defaultOf("", ws).Name)
	assert.Nil(t, defaultOf("gone", ws))
	assert.Equal(t, "a", defaultOf("", ws[:1]).Name)
	assert.Nil(t, defaultOf("", nil))
}

func TestWatchMissingDir(t *testing.T) {
	_, err := Watch(context.Background(), "/definitely/not/here")
	assert.Error(t, err)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "accountsChanged", AccountsChanged.String())
	assert.Equal(t, "chainChanged", ChainChanged.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
