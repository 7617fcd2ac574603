package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/docbao/internal/cache"
	"github.com/hitoshi/docbao/internal/metrics"
	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/scrape"
)

// PageFetcher はページ取得のインターフェース。
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Extractor は記事抽出のインターフェース。
type Extractor interface {
	CategoryArticles(markup, categoryID string) ([]*model.Article, error)
	Latest(markup string) ([]*model.Article, error)
	Trending(markup string) ([]*model.Article, error)
	RecentFromHome(markup string) ([]*model.Article, error)
	RecentFromListing(markup string) ([]*model.Article, error)
	Search(markup string) ([]*model.Article, error)
	Enrich(article *model.Article, markup string) *model.Article
}

// Writer は非同期のキャッシュ書き込みのインターフェース。
type Writer interface {
	Put(ctx context.Context, article *model.Article)
	PutAll(ctx context.Context, articles []*model.Article)
	PutList(ctx context.Context, key string, articles []*model.Article)
}

// BookmarkMarker は閲覧ユーザーのブックマーク状態を記事に設定する。
type BookmarkMarker interface {
	Mark(ctx context.Context, userID string, articles []*model.Article)
}

// ArticleCounter はカテゴリの記事数を更新する。
type ArticleCounter interface {
	UpdateArticleCount(ctx context.Context, id string, count int) error
}

// Config はServiceの設定。
type Config struct {
	BaseURL       string
	SearchURL     string
	MaxConcurrent int
	Categories    []model.Category
}

// Deps はServiceの依存。
type Deps struct {
	Fetcher   PageFetcher
	Extractor Extractor
	Store     cache.Store
	Writer    Writer
	Bookmarks BookmarkMarker
	Counter   ArticleCounter
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

// Service は記事読み込みのサービス層。
type Service struct {
	cfg       Config
	fetcher   PageFetcher
	extractor Extractor
	store     cache.Store
	writer    Writer
	bookmarks BookmarkMarker
	counter   ArticleCounter
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(cfg Config, deps Deps) *Service {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	return &Service{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		store:     deps.Store,
		writer:    deps.Writer,
		bookmarks: deps.Bookmarks,
		counter:   deps.Counter,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// LoadByCategory はカテゴリの記事を読み込む。
// refreshがtrueの場合はキャッシュ確認を省略してサイトから取得する。
// 取得や抽出に失敗した場合はキャッシュの記事（最大20件、公開日時の降順）とメッセージを返す。
func (s *Service) LoadByCategory(ctx context.Context, userID, categoryID string, refresh bool) LoadResult {
	start := time.Now()
	res := s.load(ctx, userID, loader{
		key:     categoryID,
		refresh: refresh,
		shape:   scrape.ShapeCategory,
		read: func(ctx context.Context) ([]*model.Article, error) {
			return s.store.ListByCategory(ctx, categoryID, cache.FallbackLimit)
		},
		fetch: func(ctx context.Context) ([]*model.Article, error) {
			markup, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL+"/"+categoryID)
			if err != nil {
				return nil, err
			}
			return s.extractor.CategoryArticles(markup, categoryID)
		},
		write: func(ctx context.Context, articles []*model.Article) {
			s.writer.PutAll(ctx, articles)
			if s.counter != nil {
				if err := s.counter.UpdateArticleCount(ctx, categoryID, len(articles)); err != nil {
					s.logger.Warn("カテゴリ記事数の更新に失敗しました",
						slog.String("category_id", categoryID),
						slog.String("error", err.Error()),
					)
				}
			}
		},
	})

	s.logger.Info("カテゴリ記事を読み込みました",
		slog.String("category_id", categoryID),
		slog.String("source", string(res.Source)),
		slog.String("failure", string(res.Failure)),
		slog.Int("articles_count", len(res.Articles)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res
}

// LoadAllCategories は全カテゴリを並列に読み込み、カテゴリIDごとの結果を返す。
// 全ての読み込みが終わるまで待ってから返る。
func (s *Service) LoadAllCategories(ctx context.Context, userID string) map[string]LoadResult {
	return s.loadAll(ctx, userID, false)
}

// RefreshAllCategories はキャッシュ確認を省略して全カテゴリを読み込む。定期更新で使用する。
func (s *Service) RefreshAllCategories(ctx context.Context) map[string]LoadResult {
	return s.loadAll(ctx, "", true)
}

func (s *Service) loadAll(ctx context.Context, userID string, refresh bool) map[string]LoadResult {
	results := make(map[string]LoadResult, len(s.cfg.Categories))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.MaxConcurrent)

	for _, c := range s.cfg.Categories {
		wg.Add(1)
		go func(categoryID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := s.LoadByCategory(ctx, userID, categoryID, refresh)

			mu.Lock()
			results[categoryID] = res
			mu.Unlock()
		}(c.ID)
	}

	wg.Wait()
	return results
}

// LoadDetail は記事詳細を返す。
// キャッシュの記事に元URLがあれば詳細ページを取得して本文と画像を補完し、書き戻す。
// 取得に失敗した場合はキャッシュの記事をそのまま返す。
func (s *Service) LoadDetail(ctx context.Context, userID, articleID string) (*model.Article, error) {
	cached, err := s.store.Get(ctx, articleID)
	if err != nil {
		s.metrics.RecordCacheLookup(metrics.CacheError)
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if cached == nil {
		s.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, model.NewArticleNotFoundError(articleID)
	}
	s.metrics.RecordCacheLookup(metrics.CacheHit)

	article := cached
	if cached.SourceURL != "" {
		markup, err := s.fetcher.Fetch(ctx, cached.SourceURL)
		if err != nil {
			s.logger.Warn("記事詳細の取得に失敗したためキャッシュを返します",
				slog.String("article_id", articleID),
				slog.String("url", cached.SourceURL),
				slog.String("error", err.Error()),
			)
		} else {
			article = s.extractor.Enrich(cached, markup)
			if article != cached {
				s.writer.Put(ctx, article)
			}
		}
	}

	s.mark(ctx, userID, []*model.Article{article})
	return article, nil
}

// Latest はトップページの最新記事を返す。
func (s *Service) Latest(ctx context.Context, userID string, refresh bool) LoadResult {
	return s.loadList(ctx, userID, cache.KeyLatest, refresh, scrape.ShapeLatest,
		func(ctx context.Context) ([]*model.Article, error) {
			markup, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL)
			if err != nil {
				return nil, err
			}
			return s.extractor.Latest(markup)
		})
}

// Trending はトップページのトレンド記事を返す。
func (s *Service) Trending(ctx context.Context, userID string, refresh bool) LoadResult {
	return s.loadList(ctx, userID, cache.KeyTrending, refresh, scrape.ShapeTrending,
		func(ctx context.Context) ([]*model.Article, error) {
			markup, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL)
			if err != nil {
				return nil, err
			}
			return s.extractor.Trending(markup)
		})
}

// Recent は新着記事を返す。トップページの新着ブロックが空の場合は新着一覧ページを取得する。
func (s *Service) Recent(ctx context.Context, userID string, refresh bool) LoadResult {
	return s.loadList(ctx, userID, cache.KeyRecent, refresh, scrape.ShapeRecent,
		func(ctx context.Context) ([]*model.Article, error) {
			markup, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL)
			if err != nil {
				return nil, err
			}
			articles, err := s.extractor.RecentFromHome(markup)
			if err != nil || len(articles) > 0 {
				return articles, err
			}

			listing, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL+scrape.RecentListingPath)
			if err != nil {
				return nil, err
			}
			return s.extractor.RecentFromListing(listing)
		})
}

// Search は検索結果ページから記事を抽出する。キャッシュは参照せず、結果は書き込む。
func (s *Service) Search(ctx context.Context, userID, query string) ([]*model.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewInvalidRequestError("Vui lòng nhập từ khóa tìm kiếm")
	}

	searchURL := s.cfg.SearchURL + "?q=" + url.QueryEscape(query)
	markup, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, model.NewFetchFailedError(failureMessage(err))
	}

	articles, err := s.extractor.Search(markup)
	if err != nil {
		return nil, model.NewFetchFailedError(failureMessage(err))
	}
	s.metrics.RecordExtracted(string(scrape.ShapeSearch), len(articles))

	s.writer.PutAll(ctx, articles)
	s.mark(ctx, userID, articles)

	s.logger.Info("検索しました",
		slog.String("query", query),
		slog.Int("articles_count", len(articles)),
	)
	return articles, nil
}

// loader は状態機械の1回分の読み込み手順。
type loader struct {
	key     string
	refresh bool
	shape   scrape.Shape
	read    func(ctx context.Context) ([]*model.Article, error)
	fetch   func(ctx context.Context) ([]*model.Article, error)
	write   func(ctx context.Context, articles []*model.Article)
}

func (s *Service) loadList(
	ctx context.Context,
	userID, key string,
	refresh bool,
	shape scrape.Shape,
	fetch func(ctx context.Context) ([]*model.Article, error),
) LoadResult {
	return s.load(ctx, userID, loader{
		key:     key,
		refresh: refresh,
		shape:   shape,
		read: func(ctx context.Context) ([]*model.Article, error) {
			return s.store.GetList(ctx, key)
		},
		fetch: fetch,
		write: func(ctx context.Context, articles []*model.Article) {
			s.writer.PutList(ctx, key, articles)
			s.writer.PutAll(ctx, articles)
		},
	})
}

// load は状態機械を実行する。どの状態もリトライしない。
func (s *Service) load(ctx context.Context, userID string, l loader) LoadResult {
	res := LoadResult{Key: l.key}
	res.enter(StateInit)

	if !l.refresh {
		res.enter(StateCacheCheck)
		cached, err := l.read(ctx)
		switch {
		case err != nil:
			s.metrics.RecordCacheLookup(metrics.CacheError)
			s.logger.Warn("キャッシュの参照に失敗しました",
				slog.String("key", l.key),
				slog.String("error", err.Error()),
			)
			res.enter(StateCacheMiss)
		case len(cached) > 0:
			s.metrics.RecordCacheLookup(metrics.CacheHit)
			res.enter(StateCacheHit)
			s.mark(ctx, userID, cached)
			res.Articles = cached
			res.Source = SourceCache
			res.enter(StateDone)
			return res
		default:
			s.metrics.RecordCacheLookup(metrics.CacheMiss)
			res.enter(StateCacheMiss)
		}
	}

	res.enter(StateFetching)
	articles, err := l.fetch(ctx)
	kind := scrape.Classify(err)
	switch kind {
	case scrape.FailureTransport, scrape.FailureStatus:
		res.enter(StateFetchFail)
		return s.fallback(ctx, userID, res, l, err)
	case scrape.FailureNone:
		res.enter(StateFetchOK)
		res.enter(StateExtracting)
		if len(articles) == 0 {
			res.enter(StateExtractEmpty)
			return s.fallback(ctx, userID, res, l, scrape.ErrNoRecords)
		}
	default:
		res.enter(StateFetchOK)
		res.enter(StateExtracting)
		res.enter(StateExtractEmpty)
		return s.fallback(ctx, userID, res, l, err)
	}

	res.enter(StateExtractOK)
	s.metrics.RecordExtracted(string(l.shape), len(articles))

	res.enter(StateCacheWrite)
	l.write(ctx, articles)

	s.mark(ctx, userID, articles)
	res.Articles = articles
	res.Source = SourceNetwork
	res.enter(StateDone)
	return res
}

// fallback はキャッシュから記事を読み出して結果を確定する。
// キャッシュも空の場合はメッセージをキャッシュ空のものに置き換える。
func (s *Service) fallback(ctx context.Context, userID string, res LoadResult, l loader, cause error) LoadResult {
	res.enter(StateFallbackCacheRead)
	res.Failure = scrape.Classify(cause)
	res.Message = failureMessage(cause)
	res.Source = SourceCache
	s.metrics.RecordFallback(string(res.Failure))

	cached, err := l.read(ctx)
	if err != nil {
		s.logger.Warn("フォールバックのキャッシュ読み出しに失敗しました",
			slog.String("key", l.key),
			slog.String("error", err.Error()),
		)
		cached = nil
	}

	if len(cached) == 0 {
		res.Message = MsgCacheEmpty
		res.Articles = []*model.Article{}
	} else {
		s.mark(ctx, userID, cached)
		res.Articles = cached
	}

	s.logger.Warn("取得に失敗したためキャッシュから読み出しました",
		slog.String("key", l.key),
		slog.String("failure", string(res.Failure)),
		slog.String("cause", cause.Error()),
		slog.Int("articles_count", len(res.Articles)),
	)
	res.enter(StateDone)
	return res
}

func (s *Service) mark(ctx context.Context, userID string, articles []*model.Article) {
	if s.bookmarks == nil || userID == "" || len(articles) == 0 {
		return
	}
	s.bookmarks.Mark(ctx, userID, articles)
}
