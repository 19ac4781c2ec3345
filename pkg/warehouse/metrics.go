package warehouse

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for placement operations
// 配置操作のPrometheus計測を保持
type Metrics struct {
	MovementsTotal         *prometheus.CounterVec // 移動種別ごとのコミット済み移動数
	PlacementFailuresTotal *prometheus.CounterVec // 理由別の配置失敗数
	LockTimeoutsTotal      prometheus.Counter     // ロック取得タイムアウト数
	PlacementDuration      prometheus.Histogram   // 配置操作の所要時間
}

// NewMetrics creates and registers the warehouse metrics
// 倉庫メトリクスを作成して登録
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MovementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_stock_movements_total",
				Help: "Total number of committed stock movements by kind",
			},
			[]string{"kind"},
		),
		PlacementFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_placement_failures_total",
				Help: "Total number of rejected placement operations by reason",
			},
			[]string{"reason"},
		),
		LockTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warehouse_lock_timeouts_total",
				Help: "Total number of coordination lock acquisition timeouts",
			},
		),
		PlacementDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warehouse_placement_duration_seconds",
				Help:    "Duration of placement operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.MovementsTotal, m.PlacementFailuresTotal, m.LockTimeoutsTotal, m.PlacementDuration)
	}
	return m
}

// observeMovement counts a committed movement. Safe on a nil receiver.
// コミット済み移動をカウントする。nilレシーバでも安全。
func (m *Metrics) observeMovement(kind MovementKind) {
	if m == nil {
		return
	}
	m.MovementsTotal.WithLabelValues(string(kind)).Inc()
}

// observeFailure counts a rejected operation. Safe on a nil receiver.
// 拒否された操作をカウントする。nilレシーバでも安全。
func (m *Metrics) observeFailure(reason string) {
	if m == nil {
		return
	}
	m.PlacementFailuresTotal.WithLabelValues(reason).Inc()
}

// observeLockTimeout counts a lock timeout. Safe on a nil receiver.
// ロックタイムアウトをカウントする。nilレシーバでも安全。
func (m *Metrics) observeLockTimeout() {
	if m == nil {
		return
	}
	m.LockTimeoutsTotal.Inc()
}

// observeDuration records an operation duration. Safe on a nil receiver.
// 操作所要時間を記録する。nilレシーバでも安全。
func (m *Metrics) observeDuration(seconds float64) {
	if m == nil {
		return
	}
	m.PlacementDuration.Observe(seconds)
}
