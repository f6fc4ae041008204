// Package observability provides Prometheus metrics for the messaging service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenline_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// MessagesStored counts persisted messages by conversation type.
	MessagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenline_messages_stored_total",
		Help: "Total number of messages persisted",
	}, []string{"conversation_type"})

	// FanoutEvents counts real-time events published by event name.
	FanoutEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenline_fanout_events_total",
		Help: "Total real-time events published by event name",
	}, []string{"event"})

	// FanoutErrors counts failed event publications by event name.
	// Failures are logged and dropped; clients reconcile via history fetch.
	FanoutErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenline_fanout_errors_total",
		Help: "Total failed real-time event publications by event name",
	}, []string{"event"})

	// WebSocketConnections is the gauge of active WebSocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenline_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenline_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)
