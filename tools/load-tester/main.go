package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	redisstore "github.com/user/nutricare/internal/adapter/repository/redis"
	"github.com/user/nutricare/internal/ratelimit"
)

func main() {
	redisAddr := flag.String("redis", "redis://localhost:6379", "Redis URL for the rate limit store")
	identifier := flag.String("id", "load-test", "Rate limit identifier to hammer")
	limit := flag.Int64("limit", 100, "Requests allowed per window")
	window := flag.Duration("window", time.Minute, "Fixed window length")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second to generate")
	flag.Parse()

	log.Printf("Starting rate limit load test against %s", *redisAddr)
	log.Printf("Identifier: %s, Limit: %d/%s, Concurrency: %d, Duration: %s, RPS: %d",
		*identifier, *limit, *window, *concurrency, *duration, *rps)

	opts, err := redis.ParseURL(*redisAddr)
	if err != nil {
		log.Fatalf("invalid redis url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	limiter := ratelimit.New(redisstore.NewStore(client, logger), logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	pacer := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	var wg sync.WaitGroup
	var allowed, denied, failed atomic.Int64

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := pacer.Wait(ctx); err != nil {
						return
					}
					d, err := limiter.Check(ctx, *identifier, *limit, *window)
					switch {
					case err != nil:
						failed.Add(1)
					case d.Allowed:
						allowed.Add(1)
					default:
						denied.Add(1)
					}
				}
			}
		}()
	}

	wg.Wait()

	total := allowed.Load() + denied.Load() + failed.Load()
	fmt.Printf("\n--- Results ---\n")
	fmt.Printf("Total checks: %d\n", total)
	fmt.Printf("Allowed:      %d\n", allowed.Load())
	fmt.Printf("Denied:       %d\n", denied.Load())
	fmt.Printf("Errors:       %d\n", failed.Load())
	if total > 0 {
		fmt.Printf("Throughput:   %.1f checks/sec\n", float64(total)/duration.Seconds())
	}
}
