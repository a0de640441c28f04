package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics endpoint.
type Summary struct {
	HTTP      httpSummary   `json:"http"`
	Chat      chatSummary   `json:"chat"`
	Cache     cacheInfo     `json:"cache"`
	Policy    policyInfo    `json:"policy"`
	RateLimit rateLimitInfo `json:"rateLimit"`
	Collector collectorInfo `json:"collector"`
	Auth      authInfo      `json:"auth"`
	DB        dbInfo        `json:"db"`
	Server    serverInfo    `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type chatSummary struct {
	TotalTurns  float64 `json:"totalTurns"`
	OKTurns     float64 `json:"okTurns"`
	ActiveTurns float64 `json:"activeTurns"`
	P50Turn     float64 `json:"p50Turn"`
	P95Turn     float64 `json:"p95Turn"`
	P50Model    float64 `json:"p50Model"`
	P95Model    float64 `json:"p95Model"`
}

type cacheInfo struct {
	Hits   float64 `json:"hits"`
	Misses float64 `json:"misses"`
}

type policyInfo struct {
	InputRejections  float64 `json:"inputRejections"`
	OutputRejections float64 `json:"outputRejections"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type collectorInfo struct {
	TotalFlushes float64 `json:"totalFlushes"`
	FlushErrors  float64 `json:"flushErrors"`
	Turns        float64 `json:"turns"`
}

type authInfo struct {
	Failures  float64 `json:"failures"`
	Successes float64 `json:"successes"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler returns an http.HandlerFunc that serves live metrics in JSON format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.handleLive(w)
	}
}

func (m *Metrics) handleLive(w http.ResponseWriter) {
	families, err := m.registry.Gather()
	if err != nil {
		http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
		return
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	summary := Summary{
		HTTP: httpSummary{
			TotalRequests: sumCounter(fam["taskveil_http_requests_total"]),
			ErrorRate:     computeErrorRate(fam["taskveil_http_requests_total"]),
			P50Latency:    histogramPercentile(fam["taskveil_http_request_duration_seconds"], 0.50),
			P95Latency:    histogramPercentile(fam["taskveil_http_request_duration_seconds"], 0.95),
			P99Latency:    histogramPercentile(fam["taskveil_http_request_duration_seconds"], 0.99),
		},
		Chat: chatSummary{
			TotalTurns:  sumCounter(fam["taskveil_chat_turns_total"]),
			OKTurns:     counterWithLabel(fam["taskveil_chat_turns_total"], "outcome", "ok"),
			ActiveTurns: gaugeValue(fam["taskveil_active_chat_turns"]),
			P50Turn:     histogramPercentile(fam["taskveil_chat_turn_duration_seconds"], 0.50),
			P95Turn:     histogramPercentile(fam["taskveil_chat_turn_duration_seconds"], 0.95),
			P50Model:    histogramPercentile(fam["taskveil_model_call_duration_seconds"], 0.50),
			P95Model:    histogramPercentile(fam["taskveil_model_call_duration_seconds"], 0.95),
		},
		Cache: cacheInfo{
			Hits:   counterValue(fam["taskveil_snapshot_cache_hits_total"]),
			Misses: counterValue(fam["taskveil_snapshot_cache_misses_total"]),
		},
		Policy: policyInfo{
			InputRejections:  counterWithLabel(fam["taskveil_policy_rejections_total"], "direction", "input"),
			OutputRejections: counterWithLabel(fam["taskveil_policy_rejections_total"], "direction", "output"),
		},
		RateLimit: rateLimitInfo{
			Rejections: sumCounter(fam["taskveil_ratelimit_rejections_total"]),
		},
		Collector: collectorInfo{
			TotalFlushes: sumCounter(fam["taskveil_collector_flushes_total"]),
			FlushErrors:  counterWithLabel(fam["taskveil_collector_flushes_total"], "status", "error"),
			Turns:        counterValue(fam["taskveil_collector_turns_total"]),
		},
		Auth: authInfo{
			Failures:  sumCounter(fam["taskveil_auth_failures_total"]),
			Successes: sumCounter(fam["taskveil_auth_successes_total"]),
		},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["taskveil_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["taskveil_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["taskveil_db_pool_acquired_conns"]),
		},
		Server: serverInfo{
			StartTime:     gaugeValue(fam["taskveil_server_start_time_seconds"]),
			UptimeSeconds: float64(time.Now().Unix()) - gaugeValue(fam["taskveil_server_start_time_seconds"]),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	_ = json.NewEncoder(w).Encode(summary)
}

// --- Prometheus metric helpers ---

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetGauge() != nil {
		return ms[0].GetGauge().GetValue()
	}
	return 0
}

func counterValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetCounter() != nil {
		return ms[0].GetCounter().GetValue()
	}
	return 0
}

func counterWithLabel(f *dto.MetricFamily, labelName, labelValue string) float64 {
	if f == nil {
		return 0
	}
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func computeErrorRate(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total, errors float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" {
				code := lp.GetValue()
				if len(code) > 0 && code[0] >= '4' {
					errors += v
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errors / total
}

// histogramPercentile computes a percentile from aggregated histogram buckets
// using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	if f == nil {
		return 0
	}

	type bucket struct {
		upperBound      float64
		cumulativeCount uint64
	}
	var totalCount uint64
	bucketMap := make(map[float64]uint64)

	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			bucketMap[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if totalCount == 0 {
		return 0
	}

	buckets := make([]bucket, 0, len(bucketMap))
	for ub, count := range bucketMap {
		buckets = append(buckets, bucket{upperBound: ub, cumulativeCount: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].upperBound < buckets[j].upperBound
	})

	rank := q * float64(totalCount)

	var prevBound float64
	var prevCount uint64
	for _, b := range buckets {
		if math.IsInf(b.upperBound, 1) {
			break
		}
		if float64(b.cumulativeCount) >= rank {
			// Linear interpolation within this bucket.
			bucketCount := b.cumulativeCount - prevCount
			if bucketCount == 0 {
				return b.upperBound
			}
			fraction := (rank - float64(prevCount)) / float64(bucketCount)
			return prevBound + fraction*(b.upperBound-prevBound)
		}
		prevBound = b.upperBound
		prevCount = b.cumulativeCount
	}

	// Fall back to the last finite bucket upper bound.
	for i := len(buckets) - 1; i >= 0; i-- {
		if !math.IsInf(buckets[i].upperBound, 1) {
			return buckets[i].upperBound
		}
	}
	return 0
}
