// Package rpc chooses which endpoint of a network to talk to.
package rpc

import (
	"errors"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Cache winner for this duration before re-scoring.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config value to an Algorithm, defaulting to fastest.
func ParseAlgorithm(s string) Algorithm {
	switch Algorithm(s) {
	case AlgorithmRoundRobin, AlgorithmFailover:
		return Algorithm(s)
	default:
		return AlgorithmFastest
	}
}

// Endpoint is a single RPC URL with its measured attributes.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool // meaningful only when Checked
	Checked     bool
}

// Picker selects an endpoint according to its algorithm. It is safe for
// concurrent use and remembers state (cache, rotation) between calls.
type Picker struct {
	algo Algorithm

	mu          sync.Mutex
	rrIndex     int
	cachedURL   string
	cacheExpiry time.Time
	now         func() time.Time
}

// NewPicker creates a Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Algorithm reports the picker's selection strategy.
func (p *Picker) Algorithm() Algorithm { return p.algo }

// Pick selects an endpoint from the list.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmRoundRobin:
		return p.pickRoundRobin(endpoints)
	case AlgorithmFailover:
		return pickFailover(endpoints)
	default:
		return p.pickFastest(endpoints)
	}
}

// Forget drops the cached fastest endpoint, e.g. after it stopped answering.
func (p *Picker) Forget() {
	p.mu.Lock()
	p.cachedURL = ""
	p.mu.Unlock()
}

func (p *Picker) pickFastest(endpoints []Endpoint) (*Endpoint, error) {
	if p.cachedURL != "" && p.now().Before(p.cacheExpiry) {
		for i := range endpoints {
			if endpoints[i].URL == p.cachedURL && (!endpoints[i].Checked || endpoints[i].Healthy) {
				return &endpoints[i], nil
			}
		}
	}

	candidates := candidatesOf(endpoints)
	var bestBlock uint64
	for _, e := range candidates {
		bestBlock = max(bestBlock, e.BlockNumber)
	}

	var winner *Endpoint
	var bestScore float64
	for _, e := range candidates {
		if bestBlock-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if s := score(e, bestBlock); winner == nil || s > bestScore {
			winner, bestScore = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = p.now().Add(cacheTTL)
	return winner, nil
}

func (p *Picker) pickRoundRobin(endpoints []Endpoint) (*Endpoint, error) {
	candidates := candidatesOf(endpoints)
	if len(candidates) == 0 {
		return nil, ErrNoHealthyRPC
	}
	idx := p.rrIndex % len(candidates)
	p.rrIndex = idx + 1
	return candidates[idx], nil
}

// pickFailover returns the first endpoint not known to be down.
func pickFailover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		if e := &endpoints[i]; !e.Checked || e.Healthy {
			return e, nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// score favours low latency and penalises each block of lag.
func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64
	if us := e.Latency.Microseconds(); us > 0 {
		s += 1_000_000.0 / float64(us)
	}
	s -= float64(bestBlock - e.BlockNumber)
	return s
}

// candidatesOf drops endpoints that were checked and found unhealthy.
func candidatesOf(endpoints []Endpoint) []*Endpoint {
	var out []*Endpoint
	for i := range endpoints {
		if e := &endpoints[i]; !e.Checked || e.Healthy {
			out = append(out, e)
		}
	}
	return out
}
