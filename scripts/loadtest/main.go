// Script loadtest fires concurrent requests at the weather proxy and
// compares the statistics snapshot before and after, checking the
// counters for lost updates under contention.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emmilcheung/weather-proxy/pkg/client"
)

const (
	defaultRequests    = 2000
	defaultConcurrency = 50
)

func main() {
	apiURL := getEnv("API_URL", "http://localhost:8080")
	requests := defaultRequests
	concurrency := defaultConcurrency

	fmt.Printf("=== Weather Proxy Load Test ===\n")
	fmt.Printf("Target:      %s\n", apiURL)
	fmt.Printf("Requests:    %d\n", requests)
	fmt.Printf("Concurrency: %d\n\n", concurrency)

	ctx := context.Background()
	c := client.New(apiURL)

	before, err := c.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch stats: %v\n", err)
		os.Exit(1)
	}

	var (
		success   int64
		fallback  int64
		failed    int64
		wg        sync.WaitGroup
		sem       = make(chan struct{}, concurrency)
		languages = []string{"en", "de", "fr", "es", "ja"}
	)

	start := time.Now()

	for i := 0; i < requests; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			lang := languages[idx%len(languages)]

			var env *client.Envelope
			var err error
			if idx%4 == 0 {
				env, err = c.Forecast(ctx, lang)
			} else {
				env, err = c.CurrentWeather(ctx, lang)
			}

			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
			case env.FromFallback:
				atomic.AddInt64(&fallback, 1)
			default:
				atomic.AddInt64(&success, 1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	after, err := c.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Completed in %s (%.0f req/s)\n\n", elapsed, float64(requests)/elapsed.Seconds())
	fmt.Printf("Client view:  %d ok, %d fallback, %d failed\n", success, fallback, failed)
	fmt.Printf("Proxy deltas: attempts=%d successes=%d failures=%d retries=%d\n",
		after.TotalAttempts-before.TotalAttempts,
		after.SuccessfulCalls-before.SuccessfulCalls,
		after.FailedCalls-before.FailedCalls,
		after.RetriedCalls-before.RetriedCalls,
	)

	// With retries in play each request may cost several attempts, but
	// terminal successes must match the client's count exactly.
	gotSuccesses := after.SuccessfulCalls - before.SuccessfulCalls
	if gotSuccesses != success {
		fmt.Printf("\nWARNING: success counter delta %d does not match client-observed %d\n", gotSuccesses, success)
		os.Exit(1)
	}
	fmt.Println("\nCounter check passed: no lost updates observed.")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
