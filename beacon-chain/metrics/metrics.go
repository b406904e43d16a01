// Package metrics exposes the small set of counters and gauges the
// state machine's two public entry points update, grounded on
// beacon-chain/db/state_metrics.go's promauto-registered collector
// idiom, adapted from per-validator gauge vectors (which belong to a
// persistence layer this module doesn't carry) to coarser block/cycle/
// dynasty counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksProcessed counts every block that completed ProcessBlock
	// without error.
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_blocks_processed_total",
		Help: "Total number of blocks that completed the per-block state transition",
	})

	// CycleTransitionsRun counts every per-cycle transition applied,
	// including the zero-or-more run in a single ProcessCycleTransitions
	// call.
	CycleTransitionsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_cycle_transitions_total",
		Help: "Total number of per-cycle transitions applied",
	})

	// DynastyTransitionsTriggered counts every dynasty transition
	// executed during a cycle transition.
	DynastyTransitionsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_dynasty_transitions_total",
		Help: "Total number of dynasty transitions triggered",
	})

	// CurrentSlot tracks the slot of the most recently processed state.
	CurrentSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_current_slot",
		Help: "Slot of the most recently processed beacon state",
	})

	// FinalizedSlot tracks the most recently processed state's finalized slot.
	FinalizedSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_finalized_slot",
		Help: "Finalized slot of the most recently processed beacon state",
	})
)
