package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Shared process metrics for the session scheduler.
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oneiro",
		Name:      "sessions_active",
		Help:      "Number of live game sessions.",
	})
	OccupiedCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oneiro",
		Name:      "pool_occupied",
		Help:      "Number of loaded model instances.",
	})
	Admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oneiro",
		Name:      "admissions_total",
		Help:      "Session admission outcomes.",
	}, []string{"result"})
	FramesProduced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oneiro",
		Name:      "frames_total",
		Help:      "Frames produced by all stepping loops.",
	})
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oneiro",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped on encode or transport failure.",
	})
)
