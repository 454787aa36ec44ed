package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shuttergate_files_total",
		Help: "Validated files by outcome.",
	}, []string{"outcome"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shuttergate_file_rejections_total",
		Help: "Per-file validation errors by kind.",
	}, []string{"kind"})

	compressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shuttergate_files_compressed_total",
		Help: "Files that were re-encoded to fit the size budget.",
	})

	fileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shuttergate_file_validation_duration_seconds",
		Help:    "Time spent validating a single file.",
		Buckets: prometheus.DefBuckets,
	})

	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shuttergate_batches_total",
		Help: "Validated batches by status.",
	}, []string{"status"})
)
