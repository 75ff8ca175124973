// Package ogmetrics exposes the server's Prometheus instrumentation,
// grounded on the teacher's telemetry/flow-ingest/internal/metrics
// package: one counter/gauge per observable outcome, registered via
// promauto so tests never need to touch a registry directly.
package ogmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ogserver_build_info",
		Help: "Build information of ogserver.",
	}, []string{"version", "commit", "date"})

	ConnectionsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ogserver_connections_accepted_total",
		Help: "Total connections accepted, by role.",
	}, []string{"role"})

	ConnectionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ogserver_connections_closed_total",
		Help: "Total connections closed, by role and reason.",
	}, []string{"role", "reason"})

	KeepaliveSlotsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ogserver_keepalive_slots_active",
		Help: "Number of keepalive slots currently occupied.",
	})

	FramerOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ogserver_framer_outcomes_total",
		Help: "Framer outcomes, by role and status.",
	}, []string{"role", "status"})

	TimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ogserver_timeouts_total",
		Help: "Total peers closed due to idle timeout, by role.",
	}, []string{"role"})

	CommandsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ogserver_commands_delivered_total",
		Help: "Total queued commands delivered to agents.",
	})

	DBLookupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ogserver_db_lookup_outcomes_total",
		Help: "DB computer-lookup outcomes.",
	}, []string{"result"})
)
