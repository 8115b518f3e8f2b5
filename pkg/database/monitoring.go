package database

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"github.com/nodeflow-go/pkg/logger"
)

var (
	connectionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "database_connections_in_use",
		Help: "Number of database connections in use",
	})
	connectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "database_connections_idle",
		Help: "Number of idle database connections",
	})
	connectionsWait = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "database_connections_wait_total",
		Help: "Total number of connections waited for",
	})
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "database_query_duration_seconds",
		Help:    "Database statement duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	}, []string{"operation"})
	queryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "database_errors_total",
		Help: "Total number of failed database statements",
	}, []string{"operation"})
	slowQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "database_slow_queries_total",
		Help: "Total number of slow queries",
	})
)

const startKey = "monitor:start"

// Monitor records statement latency through gorm callbacks and samples the
// connection pool on an interval.
type Monitor struct {
	db       *DB
	log      logger.Logger
	interval time.Duration
}

func NewMonitor(db *DB, log logger.Logger, interval time.Duration) (*Monitor, error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m := &Monitor{db: db, log: log, interval: interval}
	if err := m.registerCallbacks(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Monitor) registerCallbacks() error {
	cb := m.db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("monitor:before_create", m.before),
		cb.Create().After("gorm:create").Register("monitor:after_create", m.after("create")),
		cb.Query().Before("gorm:query").Register("monitor:before_query", m.before),
		cb.Query().After("gorm:query").Register("monitor:after_query", m.after("query")),
		cb.Update().Before("gorm:update").Register("monitor:before_update", m.before),
		cb.Update().After("gorm:update").Register("monitor:after_update", m.after("update")),
		cb.Delete().Before("gorm:delete").Register("monitor:before_delete", m.before),
		cb.Delete().After("gorm:delete").Register("monitor:after_delete", m.after("delete")),
	)
}

func (m *Monitor) before(db *gorm.DB) {
	db.InstanceSet(startKey, time.Now())
}

func (m *Monitor) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if start, ok := db.InstanceGet(startKey); ok {
			queryDuration.WithLabelValues(operation).Observe(time.Since(start.(time.Time)).Seconds())
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			queryErrors.WithLabelValues(operation).Inc()
		}
	}
}

// Run samples pool statistics until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) collect() {
	sqlDB, err := m.db.DB.DB()
	if err != nil {
		m.log.Error("Failed to read pool stats", "error", err)
		return
	}
	stats := sqlDB.Stats()
	connectionsInUse.Set(float64(stats.InUse))
	connectionsIdle.Set(float64(stats.Idle))
	connectionsWait.Set(float64(stats.WaitCount))
}
