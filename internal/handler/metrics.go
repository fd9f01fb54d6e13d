package handler

import (
	"fmt"
	"net/http"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
)

// PoolStater reports connection pool gauges.
type PoolStater interface {
	Stat() database.Stat
}

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
	pool        PoolStater
}

// NewMetricsHandler creates a new MetricsHandler. pool may be nil.
func NewMetricsHandler(snapshotter metrics.Snapshotter, pool PoolStater) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter, pool: pool}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "db_pool_acquire_wait_seconds_count %d\n", snap.AcquireWaitCount)
	writeMetric(w, "db_pool_acquire_wait_seconds_sum %.6f\n", float64(snap.AcquireWaitTotalNs)/1e9)
	writeMetric(w, "db_pool_exhausted_total %d\n", snap.PoolExhausted)
	if h.pool != nil {
		st := h.pool.Stat()
		writeMetric(w, "db_pool_connections{state=\"max\"} %d\n", st.MaxConns)
		writeMetric(w, "db_pool_connections{state=\"total\"} %d\n", st.TotalConns)
		writeMetric(w, "db_pool_connections{state=\"acquired\"} %d\n", st.AcquiredConns)
		writeMetric(w, "db_pool_connections{state=\"idle\"} %d\n", st.IdleConns)
	}

	writeMetric(w, "db_statements_total{status=\"success\"} %d\n", snap.StatementsSucceeded)
	writeMetric(w, "db_statements_total{status=\"failed\"} %d\n", snap.StatementsFailed)
	writeMetric(w, "db_statement_duration_seconds_count %d\n", snap.StatementDurationCount)
	writeMetric(w, "db_statement_duration_seconds_sum %.6f\n", float64(snap.StatementDurationTotalNs)/1e9)

	writeMetric(w, "db_transactions_total{outcome=\"committed\"} %d\n", snap.TransactionsCommitted)
	writeMetric(w, "db_transactions_total{outcome=\"rolled_back\"} %d\n", snap.TransactionsRolledBack)
	writeMetric(w, "db_transactions_total{outcome=\"not_begun\"} %d\n", snap.TransactionsNotBegun)

	writeMetric(w, "usuarios_created_total %d\n", snap.UsersCreated)
	writeMetric(w, "usuarios_updated_total %d\n", snap.UsersUpdated)
	writeMetric(w, "usuarios_deleted_total %d\n", snap.UsersDeleted)
	writeMetric(w, "pedidos_created_total %d\n", snap.OrdersCreated)

	writeMetric(w, "changes_published_total{status=\"success\"} %d\n", snap.ChangesPublished)
	writeMetric(w, "changes_published_total{status=\"dropped\"} %d\n", snap.ChangesDropped)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
