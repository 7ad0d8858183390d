// Package metrics defines the Prometheus collectors exported by nodescope.
// Collectors are registered on the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts geometry cache lookups by cache name and result
	// ("hit" or "miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodescope_cache_lookups_total",
			Help: "Geometry cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	// Picks counts pick operations by outcome ("node", "edge", "miss").
	Picks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodescope_picks_total",
			Help: "Pick operations by outcome",
		},
		[]string{"outcome"},
	)

	// PickDuration measures a full ray pick against the interactive set.
	PickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodescope_pick_duration_seconds",
			Help:    "Duration of a ray pick",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	// InteractiveRefreshes counts rebuilds of the interactive object set.
	InteractiveRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nodescope_interactive_refreshes_total",
			Help: "Rebuilds of the interactive object set",
		},
	)

	// HighlightMutations counts highlight treatment changes ("apply", "revert").
	HighlightMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodescope_highlight_mutations_total",
			Help: "Highlight treatment mutations by operation",
		},
		[]string{"op"},
	)

	// SceneProxies tracks the number of live visual proxies by kind.
	SceneProxies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodescope_scene_proxies",
			Help: "Live visual proxies in the scene",
		},
		[]string{"kind"},
	)

	// DatasetLoads counts dataset loads by source ("json", "script",
	// "records") and result ("ok", "error").
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodescope_dataset_loads_total",
			Help: "Dataset loads by source and result",
		},
		[]string{"source", "result"},
	)
)
