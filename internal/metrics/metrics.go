package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the version engine.
type Metrics struct {
	VersionSaves          *prometheus.CounterVec
	LabelConflicts        prometheus.Counter
	MaterializerFallbacks prometheus.Counter
	PayloadParseFailures  prometheus.Counter
}

// New registers the engine collectors with the default registry.
// Call once at startup.
func New() *Metrics {
	return &Metrics{
		VersionSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_version_saves_total",
			Help: "Total number of audit version snapshots written, by label prefix",
		}, []string{"prefix"}),
		LabelConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_version_label_conflicts_total",
			Help: "Total number of version label allocation conflicts retried",
		}),
		MaterializerFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_materializer_fallbacks_total",
			Help: "Total number of task views reconstructed from finding rows instead of a snapshot",
		}),
		PayloadParseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_payload_parse_failures_total",
			Help: "Total number of stored snapshot payloads that failed to parse",
		}),
	}
}

func (m *Metrics) IncVersionSave(prefix string) {
	if m == nil {
		return
	}
	m.VersionSaves.WithLabelValues(prefix).Inc()
}

func (m *Metrics) IncLabelConflict() {
	if m == nil {
		return
	}
	m.LabelConflicts.Inc()
}

func (m *Metrics) IncMaterializerFallback() {
	if m == nil {
		return
	}
	m.MaterializerFallbacks.Inc()
}

func (m *Metrics) IncPayloadParseFailure() {
	if m == nil {
		return
	}
	m.PayloadParseFailures.Inc()
}
