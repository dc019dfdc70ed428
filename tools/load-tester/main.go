package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	targetURL := flag.String("url", "http://localhost:8080/analytics/api/data", "Target URL for batch ingestion")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 500, "Requests per second limit")
	recordsPerBatch := flag.Int("records", 5, "Merged records per batch")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Records/Batch: %d", *concurrency, *duration, *rps, *recordsPerBatch)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					limiter.Wait(ctx) // Wait for token from rate limiter

					payload := buildBatch(workerID, *recordsPerBatch)

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					if resp.StatusCode == http.StatusAccepted {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (202 Accepted): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}

// buildBatch fabricates a merged batch payload with unique customer ids so
// repeated runs keep inserting fresh aggregates.
func buildBatch(workerID, records int) string {
	batchNumber := fmt.Sprintf("LT%06X", time.Now().UnixNano()&0xFFFFFF)
	now := time.Now().UTC().Format(time.RFC3339)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"batchNumber":"%s","data":[`, batchNumber)
	for i := 0; i < records; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		custID := "CUST_" + uuid.NewString()[:8]
		fmt.Fprintf(&buf,
			`{"merge_id":"MERGE_%08X","customer":{"id":"%s","name":"Load Tester %d","email":"load%d@example.com","phone":"+1000000000","status":"ACTIVE"},`+
				`"products":[{"id":"PROD_%s","name":"Widget","category":"load","price":19.99,"stock_level":%d}],"timestamp":"%s"}`,
			time.Now().UnixNano()&0xFFFFFFFF, custID, workerID, workerID, custID, i+1, now)
	}
	buf.WriteString(`]}`)
	return buf.String()
}
