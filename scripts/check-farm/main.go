// check-farm: reads the farm contracts on every farm network in parallel and
// prints token details, pool size and reward rate. Optional addresses on the
// command line also get their stake and token balance.
//
// Run from the module root:
//
//	go run ./scripts/check-farm [0xAddress ...]
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/contract"
)

const rpcTimeout = 12 * time.Second

var networks = []chain.Network{chain.WestendAssetHub, chain.PaseoAssetHub}

var addrs = contract.Addresses{
	Token:   common.HexToAddress(config.DefaultTokenAddress),
	Staking: common.HexToAddress(config.DefaultStakingAddress),
}

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	network string
	token   string
	total   string
	rate    string
	holders []holder
	err     string
}

type holder struct {
	addr   string
	staked string
	token  string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	var accounts []common.Address
	for _, a := range os.Args[1:] {
		if !common.IsHexAddress(a) {
			fmt.Fprintf(os.Stderr, "skipping %q: not an address\n", a)
			continue
		}
		accounts = append(accounts, common.HexToAddress(a))
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, n := range networks {
		wg.Add(1)
		go func(n chain.Network) {
			defer wg.Done()
			r := check(n, accounts)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(n)
	}
	wg.Wait()

	printTable(results)
}

func check(n chain.Network, accounts []common.Address) result {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	r := result{network: n.Name, token: "—", total: "—", rate: "—"}

	client, err := chain.Dial(ctx, n.RPCs[0])
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	defer client.Close()

	// Quick ping first; skip networks that do not respond.
	if _, _, err := client.Ping(ctx); err != nil {
		r.err = "unreachable"
		return r
	}

	gw := contract.NewGateway(client, addrs, nil, big.NewInt(n.ChainID))
	name, err := gw.TokenName(ctx)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	symbol, _ := gw.TokenSymbol(ctx)
	decimals, err := gw.TokenDecimals(ctx)
	if err != nil {
		decimals = 18
	}
	r.token = fmt.Sprintf("%s (%s)", name, symbol)

	if total, err := gw.TotalStaked(ctx); err == nil {
		r.total = chain.FormatUnits(total, n.Currency.Decimals) + " " + n.Currency.Symbol
	}
	if rate, err := gw.RewardRate(ctx); err == nil {
		r.rate = fmt.Sprintf("%.2e", chain.ToFloat(rate, int(decimals)))
	}

	for _, a := range accounts {
		h := holder{addr: shortAddr(a.Hex()), staked: "—", token: "—"}
		if v, err := gw.StakeOf(ctx, a); err == nil {
			h.staked = chain.FormatUnits(v, n.Currency.Decimals)
		}
		if v, err := gw.TokenBalance(ctx, a); err == nil {
			h.token = chain.FormatUnits(v, int(decimals))
		}
		r.holders = append(r.holders, h)
	}
	return r
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool { return results[i].network < results[j].network })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NETWORK\tTOKEN\tTOTAL STAKED\tRATE/BLOCK\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 18)+"\t"+
		strings.Repeat("-", 18)+"\t"+
		strings.Repeat("-", 16)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 12))
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.network, r.token, r.total, r.rate, r.err)
		for _, h := range r.holders {
			fmt.Fprintf(w, "  %s\tstaked %s\ttoken %s\t\t\n", h.addr, h.staked, h.token)
		}
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
