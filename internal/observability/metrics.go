package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatReplies counts chat replies by answer kind (grounded or general).
	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_advisor_chat_replies_total",
			Help: "Total number of chat replies by answer kind",
		},
		[]string{"kind"},
	)

	// GenerationErrors counts failed text completion calls.
	GenerationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_advisor_generation_errors_total",
			Help: "Total number of failed text completion calls",
		},
		[]string{"provider"},
	)

	// GenerationDuration tracks text completion latency.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phone_advisor_generation_duration_seconds",
			Help:    "Duration of text completion calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// EvidenceSelected observes how many evidence items survived the retrieval gate.
	EvidenceSelected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "phone_advisor_evidence_selected",
			Help:    "Number of evidence items kept for grounding per chat query",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	// FilterResults observes the size of filter pipeline outputs.
	FilterResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "phone_advisor_filter_results",
			Help:    "Number of phones admitted by the filter pipeline",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// RetrieverCacheLookups counts retriever cache hits and misses.
	RetrieverCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_advisor_retriever_cache_lookups_total",
			Help: "Retriever result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// IndexRebuilds counts semantic index rebuilds by outcome.
	IndexRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_advisor_index_rebuilds_total",
			Help: "Total number of semantic index rebuilds",
		},
		[]string{"status"},
	)

	// IndexDocuments reports the number of documents in the live index.
	IndexDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "phone_advisor_index_documents",
			Help: "Number of documents in the live semantic index",
		},
	)
)
