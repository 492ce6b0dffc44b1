package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// defaultQueries mixes French and English support questions so the
// synonym expansion and the classifier are both exercised.
var defaultQueries = []string{
	"congé",
	"comment configurer les congés",
	"leave configuration",
	"time off allocation",
	"facture fournisseur",
	"vendor bill",
	"how to create an invoice",
	"getting started",
	"what is odoo",
	"external api python",
	"xmlrpc authentication",
	"multi company",
	"import export data",
	"stock inventaire",
	"access rights users",
	"payroll salary structure",
	"devis client",
	"manufacturing bill of materials",
	"website seo",
	"crm pipeline",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

type Stats struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64
	empty     atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make([]time.Duration, 0, 100000),
		statuses:  make(map[int]int64),
	}
}

func (s *Stats) Record(latency time.Duration, status int, cache string, matches int, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
		if matches == 0 {
			s.empty.Add(1)
		}
	} else {
		s.errors.Add(1)
	}
	if cache == "hit" {
		s.cacheHits.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	s.statuses[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the docsearch service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results per query")
	queryFile := flag.String("queries", "", "file with one query per line (defaults to a built-in set)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		loaded, err := loadQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     queries,
	}

	fmt.Println("=== Docsearch Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(stats, cfg.Duration) {
		os.Exit(1)
	}
}

func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "#") {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				query := cfg.Queries[next%len(cfg.Queries)]
				next++
				latency, status, cache, matches, err := search(ctx, client, cfg, query)
				if ctx.Err() != nil {
					return
				}
				stats.Record(latency, status, cache, matches, err)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func search(ctx context.Context, client *http.Client, cfg Config, query string) (time.Duration, int, string, int, error) {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d&metadata=false",
		cfg.BaseURL, url.QueryEscape(query), cfg.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, "", 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, "", 0, err
	}
	defer resp.Body.Close()

	var body struct {
		TotalMatches int `json:"total_matches"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return time.Since(start), resp.StatusCode, resp.Header.Get("X-Cache"), body.TotalMatches, nil
}

func printReport(stats *Stats, duration time.Duration) bool {
	total := stats.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", stats.success.Load())
	fmt.Printf("Errors:          %d\n", stats.errors.Load())
	fmt.Printf("Cache Hits:      %d\n", stats.cacheHits.Load())
	fmt.Printf("Zero Results:    %d\n", stats.empty.Load())
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(stats.errors.Load())/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.statuses))
	for code := range stats.statuses {
		codes = append(codes, code)
	}
	statuses := stats.statuses
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			d := float64(l - avg)
			sq += d * d
		}

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
		fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, statuses[code])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
