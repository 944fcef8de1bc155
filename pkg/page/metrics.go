package page

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pageBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "outline_page_builds_total",
	Help: "Number of page trees built from storage",
}, []string{"result"})

var pageBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "outline_page_build_duration_seconds",
	Help:    "Time to fetch and build a page tree",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
})

var integrityErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "outline_integrity_errors_total",
	Help: "Number of pages rejected by the tree builder",
}, []string{"kind"})

var rootMismatches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "outline_root_mismatches_total",
	Help: "Number of loaded pages whose stored root block disagreed with the tree",
})

var pageSaves = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "outline_page_saves_total",
	Help: "Number of page saves",
}, []string{"result"})

var blockUpdatesWritten = promauto.NewCounter(prometheus.CounterOpts{
	Name: "outline_block_updates_written_total",
	Help: "Number of block row updates written by page saves",
})

var blockDeletesWritten = promauto.NewCounter(prometheus.CounterOpts{
	Name: "outline_block_deletes_written_total",
	Help: "Number of block rows deleted by page saves",
})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "outline_page_cache_lookups_total",
	Help: "Number of page cache lookups",
}, []string{"result"})
