package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics counts receivables pipeline events. It satisfies the
// receivables Observer contract and is safe for concurrent use.
type PipelineMetrics struct {
	fallbacks *prometheus.CounterVec
	lookups   *prometheus.CounterVec
	lookupIDs *prometheus.HistogramVec
	rows      *prometheus.CounterVec
	malformed *prometheus.CounterVec
}

func newPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	p := &PipelineMetrics{
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receivables_schema_fallbacks_total",
			Help: "Query attempts abandoned after a schema rejection.",
		}, []string{"model", "from", "to"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receivables_relation_lookups_total",
			Help: "Batched relation reads issued against the ERP.",
		}, []string{"relation"}),
		lookupIDs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receivables_relation_lookup_ids",
			Help:    "Distinct ids requested per relation lookup.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		}, []string{"relation"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receivables_rows_total",
			Help: "Rows produced by the pipeline per kind.",
		}, []string{"kind"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receivables_malformed_values_total",
			Help: "Record values that could not be decoded.",
		}, []string{"model", "field"}),
	}
	registerer.MustRegister(p.fallbacks, p.lookups, p.lookupIDs, p.rows, p.malformed)
	return p
}

func (p *PipelineMetrics) FallbackTriggered(model, from, to string, err error) {
	if p == nil {
		return
	}
	p.fallbacks.WithLabelValues(model, from, to).Inc()
}

func (p *PipelineMetrics) LookupIssued(relation string, ids int) {
	if p == nil {
		return
	}
	p.lookups.WithLabelValues(relation).Inc()
	p.lookupIDs.WithLabelValues(relation).Observe(float64(ids))
}

func (p *PipelineMetrics) RowsProduced(kind string, rows int) {
	if p == nil || rows <= 0 {
		return
	}
	p.rows.WithLabelValues(kind).Add(float64(rows))
}

// MalformedValue drops the record id from the labels to keep cardinality
// bounded.
func (p *PipelineMetrics) MalformedValue(model string, id int64, field string) {
	if p == nil {
		return
	}
	p.malformed.WithLabelValues(model, field).Inc()
}
