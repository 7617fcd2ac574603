// Package refresh は記事キャッシュを定期的に更新するバックグラウンドジョブを提供する。
// 全カテゴリとトップページのスナップショット（最新・トレンド・新着）をサイトから再取得する。
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/docbao/internal/news"
	"github.com/robfig/cron/v3"
)

// NewsRefresher は更新ジョブが必要とするニュースサービスのインターフェース。
type NewsRefresher interface {
	RefreshAllCategories(ctx context.Context) map[string]news.LoadResult
	Latest(ctx context.Context, userID string, refresh bool) news.LoadResult
	Trending(ctx context.Context, userID string, refresh bool) news.LoadResult
	Recent(ctx context.Context, userID string, refresh bool) news.LoadResult
}

// Summary は1回の更新サイクルの結果。
type Summary struct {
	Categories       int
	FailedCategories int
	FailedSnapshots  []string
	Duration         time.Duration
}

// Scheduler はcron式に従って更新サイクルと追加ジョブを実行する。
// 前回の実行が終わっていない場合、そのジョブの次回実行はスキップされる。
type Scheduler struct {
	cron     *cron.Cron
	news     NewsRefresher
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
}

// NewScheduler はSchedulerを生成する。
// scheduleはrobfig/cronの式（例: "@every 30m", "*/15 * * * *"）。
// timeoutは1サイクルあたりの上限時間で、0以下の場合は10分。
func NewScheduler(newsService NewsRefresher, logger *slog.Logger, schedule string, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		news:     newsService,
		logger:   logger,
		schedule: schedule,
		timeout:  timeout,
	}
}

// AddJob は更新サイクル以外の定期ジョブを登録する。Startより前に呼ぶ。
func (s *Scheduler) AddJob(ctx context.Context, schedule, name string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job(ctx); err != nil {
			s.logger.Error("定期ジョブの実行に失敗しました",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("ジョブ %s の登録に失敗: %w", name, err)
	}
	return nil
}

// Start は起動直後に1回更新サイクルを実行し、以降はスケジュールに従って実行する。
// コンテキストがキャンセルされるまでブロックし、実行中のジョブの終了を待ってから返る。
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("更新スケジュール %q が不正です: %w", s.schedule, err)
	}

	s.logger.Info("更新スケジューラを開始しました",
		slog.String("schedule", s.schedule),
		slog.Duration("timeout", s.timeout),
	)

	s.RunOnce(ctx)
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("更新スケジューラを停止しました")
	return nil
}

// RunOnce は全カテゴリとスナップショットを1回更新する。
// 個々の失敗はキャッシュへのフォールバックとして扱われ、サイクル自体は中断しない。
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	if ctx.Err() != nil {
		return Summary{}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sum Summary
	results := s.news.RefreshAllCategories(ctx)
	sum.Categories = len(results)
	for id, res := range results {
		if !res.OK() {
			sum.FailedCategories++
			s.logger.Warn("カテゴリの更新に失敗しました",
				slog.String("category_id", id),
				slog.String("failure", string(res.Failure)),
				slog.String("message", res.Message),
			)
		}
	}

	snapshots := []struct {
		name string
		load func(ctx context.Context, userID string, refresh bool) news.LoadResult
	}{
		{"latest", s.news.Latest},
		{"trending", s.news.Trending},
		{"recent", s.news.Recent},
	}
	for _, snap := range snapshots {
		if res := snap.load(ctx, "", true); !res.OK() {
			sum.FailedSnapshots = append(sum.FailedSnapshots, snap.name)
		}
	}

	sum.Duration = time.Since(start)
	s.logger.Info("更新サイクルが完了しました",
		slog.Int("categories", sum.Categories),
		slog.Int("failed_categories", sum.FailedCategories),
		slog.Any("failed_snapshots", sum.FailedSnapshots),
		slog.Float64("duration_ms", float64(sum.Duration.Milliseconds())),
	)
	return sum
}

// cronLogger はcron.Loggerをslogに橋渡しする。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
