package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketEventsTotal counts live-channel events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_notifications_created_total",
		Help: "Total notifications written, by type",
	}, []string{"type"})

	// LivePushFailures counts notifications that were stored but not published.
	LivePushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapgram_live_push_failures_total",
		Help: "Notifications persisted whose live push failed",
	})

	// InteractionToggles counts toggle outcomes, e.g. like/on or follow/off.
	InteractionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_interaction_toggles_total",
		Help: "Toggle operations by kind and resulting state",
	}, []string{"kind", "state"})

	// MediaTransforms counts media post-processing outcomes.
	MediaTransforms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_media_transforms_total",
		Help: "Media transform results by outcome",
	}, []string{"outcome"})
)

// RecordToggle increments InteractionToggles for kind with "on" or "off".
func RecordToggle(kind string, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	InteractionToggles.WithLabelValues(kind, state).Inc()
}

const queryStartKey = "snapgram:query_start"

// RegisterQueryMetrics installs GORM callbacks that observe query latency
// into DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.after("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
