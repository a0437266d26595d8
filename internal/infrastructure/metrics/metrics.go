package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatches
	DispatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelarena",
			Subsystem: "fanout",
			Name:      "dispatches_total",
			Help:      "Total user turns dispatched to the model set",
		},
	)

	// Per-model call settlements
	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelarena",
			Subsystem: "fanout",
			Name:      "model_calls_total",
			Help:      "Total model calls by settlement status",
		},
		[]string{"model", "status"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelarena",
			Subsystem: "fanout",
			Name:      "model_call_duration_seconds",
			Help:      "Model call duration from dispatch to settlement",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// Tokens reported by upstream completions
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelarena",
			Subsystem: "fanout",
			Name:      "tokens_total",
			Help:      "Total tokens consumed across completions",
		},
		[]string{"model"},
	)

	// Settlements dropped because their target turn or slot was gone
	StaleDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelarena",
			Subsystem: "fanout",
			Name:      "stale_drops_total",
			Help:      "Settlements dropped for deleted or already-terminal slots",
		},
	)

	// Conversations
	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelarena",
			Subsystem: "store",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	// HTTP
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelarena",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
