package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/polkafarm/polkafarm/internal/chain"
)

// pingTimeout bounds a single endpoint probe.
const pingTimeout = 5 * time.Second

// BenchmarkResult holds the result of a single endpoint probe.
type BenchmarkResult struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Benchmark pings all URLs in parallel and returns results in input order.
func Benchmark(ctx context.Context, urls []string) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			results[idx] = ping(ctx, u)
		}(i, url)
	}

	wg.Wait()
	return results
}

func ping(ctx context.Context, url string) BenchmarkResult {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res := BenchmarkResult{URL: url}
	c, err := chain.Dial(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}
	defer c.Close()

	res.Latency, res.BlockNumber, res.Err = c.Ping(ctx)
	return res
}

// ResultsToEndpoints converts benchmark results to picker Endpoints.
// Every returned endpoint is marked Checked.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		endpoints = append(endpoints, Endpoint{
			URL:         r.URL,
			Latency:     r.Latency,
			BlockNumber: r.BlockNumber,
			Healthy:     r.Err == nil,
			Checked:     true,
		})
	}
	return endpoints
}

// Select picks the URL to use. A single URL is returned without probing.
// Failover walks the list in order without benchmarking up front.
func (p *Picker) Select(ctx context.Context, urls []string) (string, error) {
	switch {
	case len(urls) == 0:
		return "", ErrNoHealthyRPC
	case len(urls) == 1:
		return urls[0], nil
	}

	var endpoints []Endpoint
	if p.algo == AlgorithmFailover {
		for _, u := range urls {
			r := ping(ctx, u)
			if r.Err == nil {
				return u, nil
			}
			endpoints = append(endpoints, Endpoint{URL: u, Checked: true})
		}
	} else {
		endpoints = ResultsToEndpoints(Benchmark(ctx, urls))
	}

	winner, err := p.Pick(endpoints)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
