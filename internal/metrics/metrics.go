// Package metrics exposes the pipeline's Prometheus metrics and the local
// debug server (pprof, /metrics, /health).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality: stage and reason labels come from fixed sets.
var (
	// Pipeline metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inputpipe_tick_duration_seconds",
		Help:    "Time spent assembling one command",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.02},
	})

	stageOverrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inputpipe_stage_overrides_total",
		Help: "Ticks on which a stage rewrote the command",
	}, []string{"stage"}) // Bounded: pipeline stage names

	commandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inputpipe_commands_sent_total",
		Help: "Committed commands flagged for sending",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inputpipe_events_dropped_total",
		Help: "Control events dropped because the queue was full",
	})

	// Macro metrics
	macroFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inputpipe_macro_frames",
		Help: "Frames in the macro buffer",
	})

	macroState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inputpipe_macro_state",
		Help: "Macro engine state (0 idle, 1 recording, 2 paused, 3 playing)",
	})

	// Acquisition metrics
	targetLocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inputpipe_target_locks_total",
		Help: "Ticks with a locked target",
	}, []string{"path"}) // Bounded: "clear", "fallback"

	// Bridge metrics
	bridgeConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inputpipe_bridge_connected",
		Help: "1 while the external bridge socket is up",
	})

	bridgeReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inputpipe_bridge_connects_total",
		Help: "Successful bridge connections",
	})

	bridgeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inputpipe_bridge_errors_total",
		Help: "Bridge failures that tore down or prevented the socket",
	}, []string{"op"}) // Bounded: "dial", "send", "recv"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_rejected_total",
		Help: "Requests rejected by the rate limiter or origin check",
	}, []string{"reason"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// RecordTick records tick timing.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// RecordOverride counts a stage rewriting the command.
func RecordOverride(stage string) {
	stageOverrides.WithLabelValues(stage).Inc()
}

func RecordSend() { commandsSent.Inc() }

func RecordEventDropped() { eventsDropped.Inc() }

// UpdateMacro mirrors the macro engine state.
func UpdateMacro(state, frames int) {
	macroState.Set(float64(state))
	macroFrames.Set(float64(frames))
}

// RecordTargetLock counts a locked tick; clear=false means the fallback path.
func RecordTargetLock(clear bool) {
	if clear {
		targetLocks.WithLabelValues("clear").Inc()
		return
	}
	targetLocks.WithLabelValues("fallback").Inc()
}

// SetBridgeConnected flips the connection gauge and counts connects.
func SetBridgeConnected(up bool) {
	if up {
		bridgeConnected.Set(1)
		bridgeReconnects.Inc()
		return
	}
	bridgeConnected.Set(0)
}

// RecordBridgeError counts a bridge failure. op must be "dial", "send" or "recv".
func RecordBridgeError(op string) {
	bridgeErrors.WithLabelValues(op).Inc()
}

// RecordRequest records HTTP request latency.
func RecordRequest(method, endpoint string, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RecordRejected counts a refused request. reason is "rate_limit" or "origin".
func RecordRejected(reason string) {
	requestRejected.WithLabelValues(reason).Inc()
}

func UpdateWSConnections(n int) { wsConnectionsActive.Set(float64(n)) }

func IncrementWSMessages() { wsMessagesTotal.Inc() }
