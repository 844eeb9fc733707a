// Command loadtest replays typing sessions against a launchrank daemon: each
// worker types a word one keystroke at a time, issuing a search per prefix,
// and then selects the top result like a user pressing enter.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
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

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Words       []string
	SelectRatio int
}

// Stats collects outcomes for one request kind.
type Stats struct {
	name         string
	total        atomic.Int64
	success      atomic.Int64
	errors       atomic.Int64
	latencies    []time.Duration
	latenciesMu  sync.Mutex
	statusCodes  map[int]int64
	statusCodeMu sync.Mutex
}

func NewStats(name string) *Stats {
	return &Stats{
		name:        name,
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) Record(duration time.Duration, statusCode int, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodeMu.Lock()
	s.statusCodes[statusCode]++
	s.statusCodeMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:7070", "base URL of the launchrank daemon")
	concurrency := flag.Int("concurrency", 4, "number of concurrent typists")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	words := flag.String("words", "chrome,code,terminal,notes,settings,calculator,firefox,slack,spotify,onedrive",
		"comma-separated words to type")
	selectRatio := flag.Int("select-every", 1, "select the top result after every Nth typed word (0 disables)")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Words:       strings.Split(*words, ","),
		SelectRatio: *selectRatio,
	}

	fmt.Println("=== launchrank keystroke replay ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Words:       %d\n", len(cfg.Words))
	fmt.Println()

	searches, selections := run(cfg)
	printReport(searches, cfg.Duration)
	printReport(selections, cfg.Duration)

	if searches.total.Load() == 0 {
		fmt.Println("WARNING: No requests completed. Is the daemon running?")
		os.Exit(1)
	}
}

type searchResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

func run(cfg Config) (*Stats, *Stats) {
	searches, selections := NewStats("search"), NewStats("selection")
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
		go func(workerID int) {
			defer wg.Done()
			for n := workerID; ctx.Err() == nil; n++ {
				word := cfg.Words[n%len(cfg.Words)]
				var top string
				for i := 1; i <= len(word) && ctx.Err() == nil; i++ {
					top = search(ctx, client, cfg.BaseURL, word[:i], searches)
				}
				if cfg.SelectRatio > 0 && n%cfg.SelectRatio == 0 && top != "" && ctx.Err() == nil {
					selectItem(ctx, client, cfg.BaseURL, word, top, selections)
				}
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
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
	return searches, selections
}

// search returns the id of the first result, or "" when there is none.
func search(ctx context.Context, client *http.Client, base, query string, stats *Stats) string {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", base, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.Record(elapsed, 0, err)
		}
		return ""
	}
	defer resp.Body.Close()
	stats.Record(elapsed, resp.StatusCode, nil)

	var body searchResponse
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&body) != nil || len(body.Items) == 0 {
		io.Copy(io.Discard, resp.Body)
		return ""
	}
	return body.Items[0].ID
}

func selectItem(ctx context.Context, client *http.Client, base, query, itemID string, stats *Stats) {
	payload, _ := json.Marshal(map[string]string{"query": query, "item_id": itemID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/selections", bytes.NewReader(payload))
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.Record(elapsed, 0, err)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	stats.Record(elapsed, resp.StatusCode, nil)
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.total.Load()
	errs := stats.errors.Load()

	fmt.Printf("=== %s ===\n", stats.name)
	fmt.Printf("Requests:     %d\n", total)
	fmt.Printf("Successful:   %d\n", stats.success.Load())
	fmt.Printf("Errors:       %d\n", errs)
	if total > 0 {
		fmt.Printf("Error Rate:   %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Printf("Requests/sec: %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := slices.Clone(stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Printf("Latency min/avg/max: %s / %s / %s\n",
			latencies[0], sum/time.Duration(len(latencies)), latencies[len(latencies)-1])
		fmt.Printf("Latency p50/p95/p99: %s / %s / %s\n",
			percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99))
	}

	stats.statusCodeMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}
	stats.statusCodeMu.Unlock()
	fmt.Println()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
