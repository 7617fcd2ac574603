package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/docbao/internal/metrics"
	"github.com/hitoshi/docbao/internal/model"
)

// DefaultWriteTimeout は1件の非同期書き込みに与える時間。
const DefaultWriteTimeout = 10 * time.Second

// AsyncWriter はStoreへの書き込みをゴルーチンで実行する。
// 失敗はログとメトリクスに記録するのみで、リトライも呼び出し元への通知も行わない。
type AsyncWriter struct {
	store   Store
	logger  *slog.Logger
	metrics metrics.Recorder
	timeout time.Duration

	wg sync.WaitGroup
}

// NewAsyncWriter はAsyncWriterを生成する。
func NewAsyncWriter(store Store, logger *slog.Logger, recorder metrics.Recorder) *AsyncWriter {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AsyncWriter{
		store:   store,
		logger:  logger,
		metrics: recorder,
		timeout: DefaultWriteTimeout,
	}
}

// Put は記事1件の書き込みを開始してすぐに戻る。
// リクエストのキャンセルは書き込みに伝播させない。
func (w *AsyncWriter) Put(ctx context.Context, article *model.Article) {
	if article == nil {
		return
	}
	doc := article.Clone()
	w.spawn(ctx, func(ctx context.Context) error {
		return w.store.Put(ctx, doc)
	}, slog.String("article_id", doc.ID))
}

// PutAll は記事ごとに独立した書き込みを開始する。
func (w *AsyncWriter) PutAll(ctx context.Context, articles []*model.Article) {
	for _, a := range articles {
		w.Put(ctx, a)
	}
}

// PutList はスナップショットの書き込みを開始する。
func (w *AsyncWriter) PutList(ctx context.Context, key string, articles []*model.Article) {
	snapshot := make([]*model.Article, 0, len(articles))
	for _, a := range articles {
		snapshot = append(snapshot, a.Clone())
	}
	w.spawn(ctx, func(ctx context.Context) error {
		return w.store.PutList(ctx, key, snapshot)
	}, slog.String("list_key", key))
}

// Wait は実行中の書き込みがすべて終わるまで待つ。シャットダウン時とテストで使用する。
func (w *AsyncWriter) Wait() {
	w.wg.Wait()
}

func (w *AsyncWriter) spawn(parent context.Context, write func(context.Context) error, attr slog.Attr) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.timeout)
		defer cancel()

		if err := write(ctx); err != nil {
			w.metrics.RecordCacheWriteFailure()
			w.logger.Warn("キャッシュへの書き込みに失敗しました",
				attr,
				slog.String("error", err.Error()),
			)
		}
	}()
}
