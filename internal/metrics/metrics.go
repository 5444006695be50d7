// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// ハンドラ層のHTTPステータスと、ワーカーのリフレッシュ結果を記録する。
type Collector struct {
	eventsCreated  prometheus.Counter
	eventsUpdated  prometheus.Counter
	eventsDeleted  prometheus.Counter
	refreshSuccess prometheus.Counter
	refreshFail    prometheus.Counter
	refreshLatency prometheus.Histogram
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calman_events_created_total",
			Help: "作成された予定の合計数",
		}),
		eventsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calman_events_updated_total",
			Help: "更新された予定の合計数",
		}),
		eventsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calman_events_deleted_total",
			Help: "削除された予定の合計数",
		}),
		refreshSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calman_feed_refresh_success_total",
			Help: "ICS購読リフレッシュ成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calman_feed_refresh_fail_total",
			Help: "ICS購読リフレッシュ失敗の合計数",
		}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calman_feed_refresh_latency_seconds",
			Help:    "ICS購読リフレッシュのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.eventsCreated,
		c.eventsUpdated,
		c.eventsDeleted,
		c.refreshSuccess,
		c.refreshFail,
		c.refreshLatency,
		c.httpStatus,
	)

	return c
}

// RecordEventCreated は予定の作成を記録する。
func (c *Collector) RecordEventCreated() {
	c.eventsCreated.Inc()
}

// RecordEventUpdated は予定の更新を記録する。
func (c *Collector) RecordEventUpdated() {
	c.eventsUpdated.Inc()
}

// RecordEventDeleted は予定の削除を記録する。
func (c *Collector) RecordEventDeleted() {
	c.eventsDeleted.Inc()
}

// RecordFeedRefresh はリフレッシュの結果とレイテンシを記録する。
func (c *Collector) RecordFeedRefresh(success bool, duration time.Duration) {
	if success {
		c.refreshSuccess.Inc()
	} else {
		c.refreshFail.Inc()
	}
	c.refreshLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
