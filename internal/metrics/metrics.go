// Package metrics holds the process-wide Prometheus collectors for trials, decodes and chunks.
package metrics

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrialsTotal counts evaluated units by pair kind and trial status.
	TrialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcceval_trials_total",
		Help: "Total trials by pair kind and status",
	}, []string{"pair", "status"})

	TrialDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcceval_trial_duration_seconds",
		Help:    "Trial duration in seconds, simulator invocation included",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"pair"})

	// DecodeCacheTotal counts phenotype cache lookups by genome kind and hit/miss.
	DecodeCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcceval_decode_cache_total",
		Help: "Phenotype cache lookups by genome kind and result",
	}, []string{"kind", "result"})

	ChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcceval_chunks_total",
		Help: "Chunks processed by pipeline stage",
	}, []string{"stage"})

	UpscaleTrialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcceval_upscale_trials_total",
		Help: "Upscale searches by stop reason",
	}, []string{"stop_reason"})
)

func ObserveTrial(pair, status string, elapsed time.Duration) {
	TrialsTotal.WithLabelValues(pair, status).Inc()
	TrialDuration.WithLabelValues(pair).Observe(elapsed.Seconds())
}

func ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DecodeCacheTotal.WithLabelValues(kind, result).Inc()
}

// Dump writes every mcceval_ series from the default registry as "name{labels} value" lines.
// Histograms are reported as _count and _sum.
func Dump(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, "mcceval_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			labels := ""
			if len(pairs) > 0 {
				labels = "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s%s %g", name, labels, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines,
					fmt.Sprintf("%s_count%s %d", name, labels, h.GetSampleCount()),
					fmt.Sprintf("%s_sum%s %g", name, labels, h.GetSampleSum()))
			case m.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s%s %g", name, labels, m.GetGauge().GetValue()))
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func DumpFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
