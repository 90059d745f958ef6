// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 登録・確認・メール送信の結果ラベル。
const (
	OutcomeSuccess            = "success"
	OutcomeInvalid            = "invalid"
	OutcomePersistenceFailed  = "persistence_failed"
	OutcomeNotificationFailed = "notification_failed"
	OutcomeTokenNotFound      = "token_not_found"
	EmailResultSent           = "sent"
	EmailResultTimeout        = "timeout"
	EmailResultHTTPStatus     = "http_status"
	EmailResultTransport      = "transport"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordRegistration(outcome string)
	RecordConfirmation(outcome string)
	RecordEmailSend(result string)
	RecordEmailLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	emailSends    *prometheus.CounterVec
	emailLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_registrations_total",
			Help: "購読登録リクエストの結果別の合計数",
		}, []string{"outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_confirmations_total",
			Help: "購読確認リクエストの結果別の合計数",
		}, []string{"outcome"}),
		emailSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_email_sends_total",
			Help: "確認メール送信の結果別の合計数",
		}, []string{"result"}),
		emailLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsletter_email_send_latency_seconds",
			Help:    "確認メール送信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.confirmations,
		c.emailSends,
		c.emailLatency,
	)

	return c
}

// RecordRegistration は登録リクエストの結果を記録する。
func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

// RecordConfirmation は確認リクエストの結果を記録する。
func (c *Collector) RecordConfirmation(outcome string) {
	c.confirmations.WithLabelValues(outcome).Inc()
}

// RecordEmailSend はメール送信の結果を記録する。
func (c *Collector) RecordEmailSend(result string) {
	c.emailSends.WithLabelValues(result).Inc()
}

// RecordEmailLatency はメール送信のレイテンシを記録する。
func (c *Collector) RecordEmailLatency(duration time.Duration) {
	c.emailLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
