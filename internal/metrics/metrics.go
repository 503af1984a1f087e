// Package metrics exposes Prometheus collectors for uploads, conversions,
// chat and the push channel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_uploads_total",
		Help: "Uploads stored and acknowledged",
	})

	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchparty_conversions_total",
		Help: "Background conversions by result",
	}, []string{"result"})

	ConversionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_conversions_in_flight",
		Help: "Encoder processes currently running",
	})

	ConversionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "watchparty_conversion_seconds",
		Help:    "Wall time of background conversions",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_chat_messages_total",
		Help: "Chat messages accepted",
	})

	PersistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchparty_persist_errors_total",
		Help: "Failed inserts by record kind",
	}, []string{"kind"})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchparty_broadcasts_total",
		Help: "Events fanned out on the push channel",
	}, []string{"event"})

	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchparty_broadcast_dropped_total",
		Help: "Per-connection deliveries dropped on a full send buffer",
	}, []string{"event"})

	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_ws_connections",
		Help: "Live push-channel connections",
	})
)
