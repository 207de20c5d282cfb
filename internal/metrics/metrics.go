// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ガード判定の評価地点ラベル。
const (
	PointEdge   = "edge"
	PointServer = "server"
	PointClient = "client"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordGuardDecision(point, outcome string)
	RecordLogin(result string)
	RecordBlockCheckFailure()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordStoreRowsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	guardDecisions   *prometheus.CounterVec
	logins           *prometheus.CounterVec
	blockCheckFail   prometheus.Counter
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	storeRowsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamroad_guard_decisions_total",
			Help: "評価地点・結果別のルートガード判定数",
		}, []string{"point", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamroad_login_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		blockCheckFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dreamroad_block_check_failures_total",
			Help: "利用停止確認に失敗し許可側に倒した回数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamroad_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dreamroad_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		storeRowsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dreamroad_store_rows_cleaned_total",
			Help: "保持期間切れで削除したクライアントストアの行数",
		}),
	}

	reg.MustRegister(
		c.guardDecisions,
		c.logins,
		c.blockCheckFail,
		c.httpStatus,
		c.requestLatency,
		c.storeRowsCleaned,
	)

	return c
}

// RecordGuardDecision はガード判定を記録する。
func (c *Collector) RecordGuardDecision(point, outcome string) {
	c.guardDecisions.WithLabelValues(point, outcome).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordBlockCheckFailure は利用停止確認の失敗を記録する。
func (c *Collector) RecordBlockCheckFailure() {
	c.blockCheckFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordStoreRowsCleaned は削除した行数を記録する。
func (c *Collector) RecordStoreRowsCleaned(count int64) {
	c.storeRowsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// serveではルーターの /metrics に、workerでは専用の小さなルーターに載せる。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
