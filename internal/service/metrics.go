package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the domain counters exported by the services. A nil *Metrics
// records nothing.
type Metrics struct {
	toolRuns    *prometheus.CounterVec
	outputBytes *prometheus.CounterVec
	uploads     *prometheus.CounterVec
	expired     prometheus.Counter
}

// NewMetrics creates the service counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		toolRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dochub_tool_runs_total",
				Help: "Tool invocations by outcome.",
			},
			[]string{"tool", "outcome"},
		),
		outputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dochub_tool_output_bytes_total",
				Help: "Bytes produced by each tool.",
			},
			[]string{"tool"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dochub_uploads_total",
				Help: "Uploaded files by outcome.",
			},
			[]string{"outcome"},
		),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dochub_files_expired_total",
			Help: "Stored files removed by the expiry sweep.",
		}),
	}
	for _, c := range []prometheus.Collector{m.toolRuns, m.outputBytes, m.uploads, m.expired} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) toolRun(tool, outcome string, bytes int) {
	if m == nil {
		return
	}
	m.toolRuns.WithLabelValues(tool, outcome).Inc()
	if bytes > 0 {
		m.outputBytes.WithLabelValues(tool).Add(float64(bytes))
	}
}

func (m *Metrics) upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) expiredFile() {
	if m == nil {
		return
	}
	m.expired.Inc()
}
