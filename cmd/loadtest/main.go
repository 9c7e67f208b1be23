// Command loadtest drives concurrent sentence-anagram queries against a
// running anagramd and reports throughput, latency percentiles, cache hit
// ratio, and status codes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

var defaultQueries = []string{
	"yes man",
	"Linux rulez",
	"eat tan",
	"listen",
	"dormitory",
	"the eyes",
	"a gentleman",
	"funeral",
	"astronomer",
	"slot machines",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the anagram service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "limit parameter sent with each query")
	queries := flag.String("queries", strings.Join(defaultQueries, ","), "comma-separated sentences to cycle through")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     strings.Split(*queries, ","),
	}

	fmt.Println("=== Anagram Service Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	stats.Report(os.Stdout, cfg.Duration)
	if stats.Total() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	fmt.Print("Running")
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Concurrency {
		g.Go(func() error {
			for i := w; gctx.Err() == nil; i++ {
				query := strings.TrimSpace(cfg.Queries[i%len(cfg.Queries)])
				target := fmt.Sprintf("%s/api/v1/anagrams/sentence?q=%s&limit=%d",
					cfg.BaseURL, url.QueryEscape(query), cfg.Limit)
				stats.Record(doQuery(gctx, client, target))
			}
			return nil
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	})
	g.Wait()

	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func doQuery(ctx context.Context, client *http.Client, target string) Sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Sample{Err: err}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Sample{Aborted: true}
		}
		return Sample{Latency: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		json.NewDecoder(resp.Body).Decode(&body)
	}
	io.Copy(io.Discard, resp.Body)
	return Sample{
		Latency:  time.Since(start),
		Status:   resp.StatusCode,
		CacheHit: body.CacheHit,
	}
}
