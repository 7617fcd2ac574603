// Package scrape はニュースサイトのHTML取得と記事抽出を提供する。
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/hitoshi/docbao/internal/metrics"
)

// DesktopUserAgent はモバイル版ページへの振り分けを避けるために送るUser-Agent。
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"

// URLValidator は取得前のURL検証のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Fetcher は1つのURLに対してGETを1回だけ発行し、本文を返す。
// リトライは行わず、失敗はそのまま呼び出し元に返す。
type Fetcher struct {
	client      *http.Client
	validator   URLValidator
	logger      *slog.Logger
	metrics     metrics.Recorder
	maxBodySize int64
}

// NewFetcher はFetcherを生成する。
// clientにはSSRFGuard.NewSafeClientで生成したクライアントを渡す。
func NewFetcher(
	client *http.Client,
	validator URLValidator,
	logger *slog.Logger,
	recorder metrics.Recorder,
	maxBodySize int64,
) *Fetcher {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Fetcher{
		client:      client,
		validator:   validator,
		logger:      logger,
		metrics:     recorder,
		maxBodySize: maxBodySize,
	}
}

// Fetch はURLを取得し、UTF-8に変換したHTMLを返す。
// 送受信前の失敗は*TransportError、2xx以外は*StatusErrorを返す。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.validator != nil {
		if err := f.validator.ValidateURL(rawURL); err != nil {
			f.logger.Warn("取得先URLの検証に失敗しました",
				slog.String("url", rawURL),
				slog.String("error", err.Error()),
			)
			return "", &TransportError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &TransportError{URL: rawURL, Err: fmt.Errorf("リクエスト作成に失敗: %w", err)}
	}
	req.Header.Set("User-Agent", DesktopUserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		duration := time.Since(start)
		f.metrics.RecordScrape(metrics.ScrapeTransportError, duration)
		f.logger.Error("HTTPリクエストに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return "", &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	f.metrics.RecordHTTPStatus(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		duration := time.Since(start)
		f.metrics.RecordScrape(metrics.ScrapeStatusError, duration)
		f.logger.Warn("予期しないHTTPステータスコード",
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Content-Typeのcharsetに従ってUTF-8へ変換する（最大サイズ制限付き）
	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		f.metrics.RecordScrape(metrics.ScrapeTransportError, time.Since(start))
		return "", &TransportError{URL: rawURL, Err: fmt.Errorf("文字コード判定に失敗: %w", err)}
	}

	body, err := io.ReadAll(reader)
	duration := time.Since(start)
	if err != nil {
		f.metrics.RecordScrape(metrics.ScrapeTransportError, duration)
		f.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return "", &TransportError{URL: rawURL, Err: err}
	}

	f.metrics.RecordScrape(metrics.ScrapeSuccess, duration)
	f.logger.Debug("ページを取得しました",
		slog.String("url", rawURL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return string(body), nil
}
