// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Pinterestクライアントやサービス層、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordProviderRequest(endpoint string, statusCode int, duration time.Duration)
	RecordProviderFailure(endpoint string)
	RecordPinsAggregated(boards, pins int)
	RecordDefaultsSeeded(count int)
	RecordTokenVerification(valid bool)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	providerRequests *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	boardsFetched    prometheus.Counter
	pinsAggregated   prometheus.Counter
	defaultsSeeded   prometheus.Counter
	tokenVerify      *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_provider_requests_total",
			Help: "Pinterest API呼び出しのエンドポイント・ステータス別の合計数",
		}, []string{"endpoint", "status_code"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_provider_failures_total",
			Help: "応答を得られなかったPinterest API呼び出しの合計数",
		}, []string{"endpoint"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moodboard_provider_latency_seconds",
			Help:    "Pinterest API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		boardsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodboard_boards_fetched_total",
			Help: "ピン集約で取得したボードの合計数",
		}),
		pinsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodboard_pins_aggregated_total",
			Help: "ピン集約で返却したピンの合計数",
		}),
		defaultsSeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodboard_defaults_seeded_total",
			Help: "自動作成したデフォルトムードボードの合計数",
		}),
		tokenVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_token_verifications_total",
			Help: "トークン検証の結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.providerRequests,
		c.providerFailures,
		c.providerLatency,
		c.boardsFetched,
		c.pinsAggregated,
		c.defaultsSeeded,
		c.tokenVerify,
		c.httpStatus,
	)

	return c
}

// RecordProviderRequest はPinterest APIの応答を記録する。
func (c *Collector) RecordProviderRequest(endpoint string, statusCode int, duration time.Duration) {
	c.providerRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.providerLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordProviderFailure は通信エラー等で応答を得られなかった呼び出しを記録する。
func (c *Collector) RecordProviderFailure(endpoint string) {
	c.providerFailures.WithLabelValues(endpoint).Inc()
}

// RecordPinsAggregated はピン集約1回分のボード数とピン数を記録する。
func (c *Collector) RecordPinsAggregated(boards, pins int) {
	c.boardsFetched.Add(float64(boards))
	c.pinsAggregated.Add(float64(pins))
}

// RecordDefaultsSeeded は作成したデフォルトムードボード数を記録する。
func (c *Collector) RecordDefaultsSeeded(count int) {
	c.defaultsSeeded.Add(float64(count))
}

// RecordTokenVerification はトークン検証結果を記録する。
func (c *Collector) RecordTokenVerification(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	c.tokenVerify.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordProviderRequest(string, int, time.Duration) {}
func (Nop) RecordProviderFailure(string)                     {}
func (Nop) RecordPinsAggregated(int, int)                    {}
func (Nop) RecordDefaultsSeeded(int)                         {}
func (Nop) RecordTokenVerification(bool)                     {}
func (Nop) RecordHTTPStatus(int)                             {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
