// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Seeder metrics
	SeedRunsTotal    *prometheus.CounterVec
	SeedDuration     prometheus.Histogram
	ClientsCreated   prometheus.Counter
	CoinsMinted      prometheus.Counter
	TransactionsMade prometheus.Counter
	MintRetries      prometheus.Counter
	ContactRetries   prometheus.Counter

	// Query metrics
	EnrichedQueries      *prometheus.CounterVec
	EnrichedQueryLatency prometheus.Histogram
	EnrichedRowsReturned prometheus.Gauge
	IntegrityMismatches  prometheus.Counter

	// Audit metrics
	AuditRunsTotal     *prometheus.CounterVec
	AuditDivergences   prometheus.Counter
	LastAuditDivergent prometheus.Gauge

	// HTTP metrics
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	FeedSubscribers prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulSeed  prometheus.Gauge
	LastSuccessfulAudit prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "coin_ledger"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Seeder metrics
		SeedRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "runs_total",
			Help:      "Total number of seed runs by status",
		}, []string{"status"}),
		SeedDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "duration_seconds",
			Help:      "Seed run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		ClientsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "clients_created_total",
			Help:      "Total number of clients created by the seeder",
		}),
		CoinsMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "coins_minted_total",
			Help:      "Total number of coins minted by the seeder",
		}),
		TransactionsMade: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "transactions_recorded_total",
			Help:      "Total number of transactions recorded by the seeder",
		}),
		MintRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "mint_retries_total",
			Help:      "Total number of component triples resampled after a collision",
		}),
		ContactRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seeder",
			Name:      "contact_retries_total",
			Help:      "Total number of client contacts regenerated after a collision",
		}),

		// Query metrics
		EnrichedQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "enriched_queries_total",
			Help:      "Total number of enriched transaction queries by status",
		}, []string{"status"}),
		EnrichedQueryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "enriched_query_duration_seconds",
			Help:      "Enriched transaction query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		EnrichedRowsReturned: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "enriched_rows",
			Help:      "Number of rows returned by the last successful enriched query",
		}),
		IntegrityMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "integrity_mismatches_total",
			Help:      "Total number of rows whose stored coin value did not match its components",
		}),

		// Audit metrics
		AuditRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Total number of integrity audit runs by outcome",
		}, []string{"outcome"}),
		AuditDivergences: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "divergences_total",
			Help:      "Total number of divergent rows found by audits",
		}),
		LastAuditDivergent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "last_run_divergent_rows",
			Help:      "Divergent rows found by the most recent audit",
		}),

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		FeedSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "feed_subscribers",
			Help:      "Number of connected live feed websocket clients",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulSeed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_seed_timestamp",
			Help:      "Unix timestamp of last successful seed run",
		}),
		LastSuccessfulAudit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_audit_timestamp",
			Help:      "Unix timestamp of last completed audit run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSeedRun records a finished seed run.
func RecordSeedRun(err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.SeedRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SeedDuration.Observe(d.Seconds())
	if err == nil {
		DefaultMetrics.LastSuccessfulSeed.Set(float64(time.Now().Unix()))
	}
}

// RecordSeedCounts adds the rows and retries produced by a committed seed run.
func RecordSeedCounts(clients, coins, transactions, mintRetries, contactRetries int) {
	DefaultMetrics.ClientsCreated.Add(float64(clients))
	DefaultMetrics.CoinsMinted.Add(float64(coins))
	DefaultMetrics.TransactionsMade.Add(float64(transactions))
	DefaultMetrics.MintRetries.Add(float64(mintRetries))
	DefaultMetrics.ContactRetries.Add(float64(contactRetries))
}

// RecordEnrichedQuery records one enriched transaction query.
func RecordEnrichedQuery(rows int, d time.Duration, err error) {
	DefaultMetrics.EnrichedQueryLatency.Observe(d.Seconds())
	if err != nil {
		DefaultMetrics.EnrichedQueries.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.EnrichedQueries.WithLabelValues("success").Inc()
	DefaultMetrics.EnrichedRowsReturned.Set(float64(rows))
}

// RecordIntegrityMismatch increments the identity mismatch counter.
func RecordIntegrityMismatch() {
	DefaultMetrics.IntegrityMismatches.Inc()
}

// RecordAuditRun records an audit outcome: "clean", "divergent" or "error".
func RecordAuditRun(divergent int, err error) {
	switch {
	case err != nil:
		DefaultMetrics.AuditRunsTotal.WithLabelValues("error").Inc()
		return
	case divergent > 0:
		DefaultMetrics.AuditRunsTotal.WithLabelValues("divergent").Inc()
	default:
		DefaultMetrics.AuditRunsTotal.WithLabelValues("clean").Inc()
	}
	DefaultMetrics.AuditDivergences.Add(float64(divergent))
	DefaultMetrics.LastAuditDivergent.Set(float64(divergent))
	DefaultMetrics.LastSuccessfulAudit.Set(float64(time.Now().Unix()))
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	DefaultMetrics.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
}

// FeedSubscribed adjusts the live feed subscriber gauge by delta.
func FeedSubscribed(delta int) {
	DefaultMetrics.FeedSubscribers.Add(float64(delta))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateDBConnections sets the pool connection gauges.
func UpdateDBConnections(database string, idle, inUse int32) {
	DefaultMetrics.DBConnections.WithLabelValues(database, "idle").Set(float64(idle))
	DefaultMetrics.DBConnections.WithLabelValues(database, "in_use").Set(float64(inUse))
}
