package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline outcomes.
type Metrics struct {
	Records       *prometheus.CounterVec
	Files         *prometheus.CounterVec
	CitationEdges *prometheus.CounterVec
}

// NewMetrics creates the pipeline counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aip_records_total",
				Help: "Source records processed, by source and outcome (inserted, updated, rejected, skipped).",
			},
			[]string{"source", "outcome"},
		),
		Files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aip_files_total",
				Help: "Source files processed, by source and outcome (ingested, already_ingested, failed).",
			},
			[]string{"source", "outcome"},
		),
		CitationEdges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aip_citation_edges_total",
				Help: "Citation edges offered to the store, by outcome (written, duplicate).",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Records, m.Files, m.CitationEdges)
	}
	return m
}
