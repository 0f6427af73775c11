package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockServer answers eth_blockNumber with block after an optional delay.
func blockServer(t *testing.T, block string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0", "id": req.ID, "result": block,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

const deadURL = "http://127.0.0.1:19993"

func TestResultsToEndpoints(t *testing.T) {
	endpoints := ResultsToEndpoints([]BenchmarkResult{
		{URL: "https://ok", Latency: 50 * time.Millisecond, BlockNumber: 100},
		{URL: "https://dead", Err: errors.New("connection refused")},
	})
	require.Len(t, endpoints, 2)

	assert.Equal(t, "https://ok", endpoints[0].URL)
	assert.Equal(t, 50*time.Millisecond, endpoints[0].Latency)
	assert.True(t, endpoints[0].Healthy)
	assert.False(t, endpoints[1].Healthy)
	for _, e := range endpoints {
		assert.True(t, e.Checked)
	}

	assert.Empty(t, ResultsToEndpoints(nil))
}

func TestBenchmarkPreservesOrder(t *testing.T) {
	a := blockServer(t, "0x64", 0)
	results := Benchmark(context.Background(), []string{a.URL, deadURL})
	require.Len(t, results, 2)

	assert.Equal(t, a.URL, results[0].URL)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, uint64(100), results[0].BlockNumber)

	assert.Equal(t, deadURL, results[1].URL)
	assert.Error(t, results[1].Err)
}

func TestSelectSingleURLSkipsProbe(t *testing.T) {
	url, err := NewPicker(AlgorithmFastest).Select(context.Background(), []string{deadURL})
	require.NoError(t, err)
	assert.Equal(t, deadURL, url)
}

func TestSelectNoURLs(t *testing.T) {
	_, err := NewPicker(AlgorithmFastest).Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestSelectFastestSkipsDeadEndpoint(t *testing.T) {
	live := blockServer(t, "0x10", 0)
	url, err := NewPicker(AlgorithmFastest).Select(context.Background(), []string{deadURL, live.URL})
	require.NoError(t, err)
	assert.Equal(t, live.URL, url)
}

func TestSelectFailoverTakesFirstLive(t *testing.T) {
	first := blockServer(t, "0x10", 20*time.Millisecond)
	second := blockServer(t, "0x10", 0)
	url, err := NewPicker(AlgorithmFailover).Select(context.Background(), []string{deadURL, first.URL, second.URL})
	require.NoError(t, err)
	assert.Equal(t, first.URL, url)
}

func TestSelectAllDead(t *testing.T) {
	_, err := NewPicker(AlgorithmFailover).Select(context.Background(), []string{deadURL, "http://127.0.0.1:19994"})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}
