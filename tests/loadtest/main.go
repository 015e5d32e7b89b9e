package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numPatients  = 2000
)

var channels = []string{
	"organic_search", "paid_search", "email", "social_organic", "social_paid",
	"referral", "direct", "marketplace", "review_sites", "retargeting",
}

var campaigns = []string{"spring_checkup", "new_patient", "recall", "whitening", ""}

var conversionTypes = []string{"appointment_booked", "account_created", "reactivated", ""}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== MTAD Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Patients: %d | Channels: %d\n\n", numPatients, len(channels))

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Seed journeys with touchpoints
	fmt.Println("\n--- Phase 1: Seeding journeys (POST /touchpoint) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doPostTouchPoint(rng)
	})

	// Phase 2: Mixed ingestion (touchpoints plus conversions)
	fmt.Println("\n--- Phase 2: Mixed ingestion (85% touchpoint, 15% conversion) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		if rng.Float64() < 0.85 {
			return doPostTouchPoint(rng)
		}
		return doPostConversion(rng)
	})

	// Phase 3: Read-heavy load over the reporting surface
	fmt.Println("\n--- Phase 3: Read-heavy load (10% POST, 90% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doPostTouchPoint(rng)
		case r < 0.40:
			return doGetReport(rng)
		case r < 0.60:
			return doGetFunnel()
		case r < 0.75:
			return doGetPaths(rng)
		case r < 0.88:
			return doGetCompare()
		default:
			return doGetJourney(rng)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func patientID(rng *rand.Rand) string {
	return fmt.Sprintf("patient_%d", rng.Intn(numPatients)+1)
}

func reportWindow() (string, string) {
	end := time.Now().UTC()
	start := end.Add(-30 * 24 * time.Hour)
	return start.Format(time.RFC3339), end.Format(time.RFC3339)
}

func doPostTouchPoint(rng *rand.Rand) result {
	body := map[string]interface{}{
		"patientId": patientID(rng),
		"channel":   channels[rng.Intn(len(channels))],
		"pageViews": rng.Intn(5) + 1,
	}
	if c := campaigns[rng.Intn(len(campaigns))]; c != "" {
		body["campaign"] = c
	}
	if rng.Float64() < 0.4 {
		body["interactions"] = rng.Intn(3)
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/touchpoint", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /touchpoint", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /touchpoint", resp.StatusCode, lat, resp.StatusCode != 201}
}

func doPostConversion(rng *rand.Rand) result {
	body := map[string]interface{}{
		"patientId":     patientID(rng),
		"lifetimeValue": float64(rng.Intn(5000) + 500),
	}
	if ct := conversionTypes[rng.Intn(len(conversionTypes))]; ct != "" {
		body["conversionType"] = ct
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/conversion", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /conversion", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 404 is expected for patients without a seeded journey
	ok := resp.StatusCode == 200 || resp.StatusCode == 404
	return result{"POST /conversion", resp.StatusCode, lat, !ok}
}

func doGetReport(rng *rand.Rand) result {
	models := []string{"first_touch", "last_touch", "linear", "time_decay", "position_based", "custom"}
	from, to := reportWindow()
	url := fmt.Sprintf("%s/report?model=%s&start=%s&end=%s", baseURL, models[rng.Intn(len(models))], from, to)
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /report", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /report", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetFunnel() result {
	from, to := reportWindow()
	url := fmt.Sprintf("%s/funnel?start=%s&end=%s", baseURL, from, to)
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /funnel", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /funnel", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetPaths(rng *rand.Rand) result {
	from, to := reportWindow()
	url := fmt.Sprintf("%s/paths?start=%s&end=%s&limit=%d", baseURL, from, to, rng.Intn(20)+5)
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /paths", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /paths", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetCompare() result {
	from, to := reportWindow()
	url := fmt.Sprintf("%s/compare?start=%s&end=%s", baseURL, from, to)
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /compare", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /compare", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetJourney(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/journey?p=%s", baseURL, patientID(rng))
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /journey", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	ok := resp.StatusCode == 200 || resp.StatusCode == 404
	return result{"GET /journey", resp.StatusCode, lat, !ok}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
