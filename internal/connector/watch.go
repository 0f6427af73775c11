package connector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/logger"
)

// EventKind classifies a wallet change seen on disk.
type EventKind int

const (
	AccountsChanged EventKind = iota + 1
	ChainChanged
)

func (k EventKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	default:
		return "unknown"
	}
}

// Event is a wallet change made outside this process, e.g. by
// `polkafarm wallet use` or `polkafarm network switch` in another terminal.
// An AccountsChanged event with an empty Account means disconnected.
// Wallet names the wallet that owns Account, when it is known.
type Event struct {
	Kind    EventKind
	Account string
	Wallet  string
	Network string
}

type watchState struct {
	network        string
	sessionWallet  string
	account        string
	defaultWallet  string
	defaultAccount string
}

// readState fails while a file is half written; the next event retries.
func readState(dir string) (watchState, bool) {
	cfg, err := config.Load(dir)
	if err != nil {
		return watchState{}, false
	}
	sf, err := cfg.LoadSession()
	if err != nil {
		return watchState{}, false
	}
	wf, err := cfg.LoadWallets()
	if err != nil {
		return watchState{}, false
	}
	st := watchState{network: cfg.Network, sessionWallet: sf.Wallet, account: sf.Account}
	if w := defaultOf(cfg.DefaultWallet, wf.Wallets); w != nil {
		st.defaultWallet, st.defaultAccount = w.Name, w.Address
	}
	return st, true
}

// defaultOf resolves the default wallet the way Connect does: the configured
// name, else the marked wallet, else the only one.
func defaultOf(name string, wallets []config.Wallet) *config.Wallet {
	for i := range wallets {
		if name != "" && wallets[i].Name == name {
			return &wallets[i]
		}
	}
	if name != "" {
		return nil
	}
	for i := range wallets {
		if wallets[i].IsDefault {
			return &wallets[i]
		}
	}
	if len(wallets) == 1 {
		return &wallets[0]
	}
	return nil
}

// accountEvent describes an account change between two states, if any. A new
// session account wins over a new default wallet, and a new default only
// matters while someone is connected.
func accountEvent(prev, cur watchState) (Event, bool) {
	defaultMoved := cur.defaultWallet != prev.defaultWallet || !strings.EqualFold(cur.defaultAccount, prev.defaultAccount)
	switch {
	case cur.account != prev.account:
		return Event{Kind: AccountsChanged, Account: cur.account, Wallet: cur.sessionWallet, Network: cur.network}, true
	case defaultMoved && cur.account != "" && cur.defaultAccount != "":
		return Event{Kind: AccountsChanged, Account: cur.defaultAccount, Wallet: cur.defaultWallet, Network: cur.network}, true
	}
	return Event{}, false
}

// Watch reports account and chain changes in the config directory until
// ctx is cancelled, then closes the channel.
func Watch(ctx context.Context, dir string) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	log := logger.With("watch")
	out := make(chan Event, 8)
	prev, _ := readState(dir)

	go func() {
		defer close(out)
		defer watcher.Close()

		emit := func(e Event) bool {
			select {
			case out <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
					!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				switch filepath.Base(ev.Name) {
				case "config.json", "session.json", "wallets.json":
				default:
					continue
				}

				cur, ok := readState(dir)
				if !ok {
					continue
				}
				if cur.network != prev.network {
					log.Debug().Str("from", prev.network).Str("to", cur.network).Msg("chain changed")
					if !emit(Event{Kind: ChainChanged, Network: cur.network, Account: cur.account}) {
						return
					}
				}
				if e, changed := accountEvent(prev, cur); changed {
					log.Debug().Str("account", e.Account).Str("wallet", e.Wallet).Msg("accounts changed")
					if !emit(e) {
						return
					}
				}
				prev = cur
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watch error")
			}
		}
	}()
	return out, nil
}
