// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// スクレイパー、キャッシュ、ニュースサービスから利用する。
type Recorder interface {
	RecordScrape(result string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordExtracted(shape string, count int)
	RecordCacheLookup(result string)
	RecordCacheWriteFailure()
	RecordFallback(reason string)
}

// スクレイプ結果ラベル
const (
	ScrapeSuccess        = "success"
	ScrapeTransportError = "transport_error"
	ScrapeStatusError    = "status_error"
)

// キャッシュ参照結果ラベル
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	scrapes        *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	scrapeLatency  prometheus.Histogram
	extracted      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	cacheWriteFail prometheus.Counter
	fallbacks      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docbao_scrape_total",
			Help: "ニュースサイトへのHTTP取得回数（結果別）",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docbao_scrape_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		scrapeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docbao_scrape_latency_seconds",
			Help:    "ニュースサイト取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		extracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docbao_articles_extracted_total",
			Help: "抽出された記事数（形状別）",
		}, []string{"shape"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docbao_cache_lookups_total",
			Help: "キャッシュ参照回数（hit/miss/error）",
		}, []string{"result"}),
		cacheWriteFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docbao_cache_write_failures_total",
			Help: "非同期キャッシュ書き込みの失敗数",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docbao_cache_fallback_reads_total",
			Help: "取得失敗時のキャッシュフォールバック回数（理由別）",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.scrapes,
		c.httpStatus,
		c.scrapeLatency,
		c.extracted,
		c.cacheLookups,
		c.cacheWriteFail,
		c.fallbacks,
	)

	return c
}

// RecordScrape は取得結果とレイテンシを記録する。
func (c *Collector) RecordScrape(result string, duration time.Duration) {
	c.scrapes.WithLabelValues(result).Inc()
	c.scrapeLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordExtracted は抽出された記事数を記録する。
func (c *Collector) RecordExtracted(shape string, count int) {
	c.extracted.WithLabelValues(shape).Add(float64(count))
}

// RecordCacheLookup はキャッシュ参照結果を記録する。
func (c *Collector) RecordCacheLookup(result string) {
	c.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheWriteFailure はキャッシュ書き込み失敗を記録する。
func (c *Collector) RecordCacheWriteFailure() {
	c.cacheWriteFail.Inc()
}

// RecordFallback はキャッシュフォールバックを記録する。
func (c *Collector) RecordFallback(reason string) {
	c.fallbacks.WithLabelValues(reason).Inc()
}

// Nop は何も記録しないRecorder。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordScrape(string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordExtracted(string, int)        {}
func (Nop) RecordCacheLookup(string)           {}
func (Nop) RecordCacheWriteFailure()           {}
func (Nop) RecordFallback(string)              {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
