// Package metrics is a small Prometheus-text collector for the relay:
// counters and histograms, rendered by Handler.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"snapbuy/internal/domain"
)

// Collector is the process-wide registry.
var Collector = NewRegistry()

// Registry holds named counters and histograms.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	startTime  time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		startTime:  time.Now(),
	}
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records v in every bucket whose upper bound is >= v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Counter returns the counter registered under name and labels, creating it on first use.
func (r *Registry) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: labels}
	r.counters[key] = c
	return c
}

// Histogram returns the histogram registered under name, creating it on first use.
func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	b := append([]float64(nil), bounds...)
	sort.Float64s(b)
	if len(b) == 0 || !math.IsInf(b[len(b)-1], 1) {
		b = append(b, math.Inf(1))
	}
	h := &Histogram{name: name, help: help, bounds: b, buckets: make([]int64, len(b))}
	r.histograms[name] = h
	return h
}

// Handler renders all metrics in Prometheus text exposition format.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, r.render())
	}
}

func (r *Registry) render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP snapbuy_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE snapbuy_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "snapbuy_uptime_seconds %d\n", int64(time.Since(r.startTime).Seconds()))

	r.mu.Lock()
	counters := make([]*Counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, c)
	}
	histograms := make([]*Histogram, 0, len(r.histograms))
	for _, h := range r.histograms {
		histograms = append(histograms, h)
	}
	r.mu.Unlock()

	sort.Slice(counters, func(i, j int) bool {
		if counters[i].name != counters[j].name {
			return counters[i].name < counters[j].name
		}
		return counters[i].labels < counters[j].labels
	})
	sort.Slice(histograms, func(i, j int) bool { return histograms[i].name < histograms[j].name })

	last := ""
	for _, c := range counters {
		if c.name != last {
			fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
			last = c.name
		}
		if c.labels != "" {
			fmt.Fprintf(&sb, "%s{%s} %d\n", c.name, c.labels, c.Value())
		} else {
			fmt.Fprintf(&sb, "%s %d\n", c.name, c.Value())
		}
	}

	for _, h := range histograms {
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
		for i, le := range h.bounds {
			bound := fmt.Sprintf("%g", le)
			if math.IsInf(le, 1) {
				bound = "+Inf"
			}
			fmt.Fprintf(&sb, "%s_bucket{le=\"%s\"} %d\n", h.name, bound, h.buckets[i])
		}
		fmt.Fprintf(&sb, "%s_sum %f\n%s_count %d\n", h.name, h.sum, h.name, h.count)
		h.mu.Unlock()
	}
	return sb.String()
}

var (
	PhotosReceived  = Collector.Counter("snapbuy_photos_total", "Photo messages received", "")
	TextQueries     = Collector.Counter("snapbuy_text_queries_total", "Text product queries received", "")
	LabelsSent      = Collector.Counter("snapbuy_labels_sent_total", "Successful label replies", "")
	ReplyFailures   = Collector.Counter("snapbuy_reply_failures_total", "Replies the bot transport rejected", "")
	Redirects       = Collector.Counter("snapbuy_redirects_total", "Affiliate redirects served", "")
	WebhookUpdates  = Collector.Counter("snapbuy_webhook_updates_total", "Bot updates received on the webhook", "")
	WebhookRejected = Collector.Counter("snapbuy_webhook_invalid_total", "Webhook bodies that could not be decoded", "")

	IdentifyLatency = Collector.Histogram("snapbuy_identify_latency_seconds", "Inference request latency in seconds",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120})
)

// StageFailures returns the failure counter for one pipeline stage.
func StageFailures(stage domain.Stage) *Counter {
	return Collector.Counter("snapbuy_stage_failures_total", "Pipeline failures by stage", fmt.Sprintf("stage=%q", stage))
}
