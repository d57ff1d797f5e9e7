package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "hgsim"
	subsystem        = "engine"
)

// Metrics are the collectors an Engine updates as it runs.
type Metrics struct {
	// Steps counts applied steps by rule, with "skipped" for steps whose
	// seed had no pattern.
	Steps *prometheus.CounterVec

	// Runs counts finished runs by status.
	Runs *prometheus.CounterVec

	NodesPruned prometheus.Counter

	// Graph size after the latest step
	Edges prometheus.Gauge
	Nodes prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Steps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: subsystem,
				Name:      "steps_total",
				Help:      "Total number of simulation steps applied",
			},
			[]string{"rule"},
		),
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of finished runs",
			},
			[]string{"status"},
		),
		NodesPruned: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: subsystem,
				Name:      "nodes_pruned_total",
				Help:      "Total number of node ids reclaimed by compaction",
			},
		),
		Edges: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: subsystem,
				Name:      "edges",
				Help:      "Number of hyperedges after the latest step",
			},
		),
		Nodes: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: subsystem,
				Name:      "active_nodes",
				Help:      "Number of active nodes after the latest step",
			},
		),
	}
}

// DefaultMetrics is registered with the process-wide default registry and
// used by engines built without WithMetrics.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// MetricSample is one gathered series.
type MetricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// String renders s in exposition style, e.g. hgsim_engine_steps_total{rule="split"} 3.
func (s MetricSample) String() string {
	if len(s.Labels) == 0 {
		return fmt.Sprintf("%s %g", s.Name, s.Value)
	}
	keys := make([]string, 0, len(s.Labels))
	for k := range s.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%q", k, s.Labels[k])
	}
	return fmt.Sprintf("%s{%s} %g", s.Name, strings.Join(pairs, ","), s.Value)
}

// GatherSamples collects the counter and gauge series of g, ordered by
// name and then by rendered labels. Other metric types are skipped.
func GatherSamples(g prometheus.Gatherer) ([]MetricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	samples := []MetricSample{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			default:
				continue
			}
			s := MetricSample{Name: fam.GetName(), Value: value}
			if pairs := m.GetLabel(); len(pairs) > 0 {
				s.Labels = make(map[string]string, len(pairs))
				for _, p := range pairs {
					s.Labels[p.GetName()] = p.GetValue()
				}
			}
			samples = append(samples, s)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].String() < samples[j].String()
	})
	return samples, nil
}
