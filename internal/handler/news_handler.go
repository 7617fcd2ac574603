// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/news"
)

// NewsServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	LoadByCategory(ctx context.Context, userID, categoryID string, refresh bool) news.LoadResult
	LoadAllCategories(ctx context.Context, userID string) map[string]news.LoadResult
	LoadDetail(ctx context.Context, userID, articleID string) (*model.Article, error)
	Latest(ctx context.Context, userID string, refresh bool) news.LoadResult
	Trending(ctx context.Context, userID string, refresh bool) news.LoadResult
	Recent(ctx context.Context, userID string, refresh bool) news.LoadResult
	Search(ctx context.Context, userID, query string) ([]*model.Article, error)
}

// CategoryServiceInterface はカテゴリ取得のサービスインターフェース。
type CategoryServiceInterface interface {
	List(ctx context.Context) ([]*model.Category, error)
	Get(ctx context.Context, id string) (*model.Category, error)
}

// NewsHandler は記事とカテゴリのHTTPハンドラー。
type NewsHandler struct {
	news       NewsServiceInterface
	categories CategoryServiceInterface
	now        func() time.Time
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(newsService NewsServiceInterface, categoryService CategoryServiceInterface) *NewsHandler {
	return &NewsHandler{
		news:       newsService,
		categories: categoryService,
		now:        time.Now,
	}
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *NewsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

// CategoryArticles はカテゴリの記事一覧を返す。
// GET /api/categories/{id}/articles?refresh=1
func (h *NewsHandler) CategoryArticles(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	if _, err := h.categories.Get(r.Context(), categoryID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	res := h.news.LoadByCategory(r.Context(), middleware.OptionalUserID(r.Context()), categoryID, wantsRefresh(r))
	writeJSON(w, http.StatusOK, toArticleListResponse(res, h.now()))
}

// Home は全カテゴリの記事一覧をまとめて返す。
// 全カテゴリの読み込みが終わってから応答する。
// GET /api/home
func (h *NewsHandler) Home(w http.ResponseWriter, r *http.Request) {
	results := h.news.LoadAllCategories(r.Context(), middleware.OptionalUserID(r.Context()))

	now := h.now()
	resp := make(map[string]articleListResponse, len(results))
	for id, res := range results {
		resp[id] = toArticleListResponse(res, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

// Latest はトップページの最新記事を返す。
// GET /api/articles/latest
func (h *NewsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	res := h.news.Latest(r.Context(), middleware.OptionalUserID(r.Context()), wantsRefresh(r))
	writeJSON(w, http.StatusOK, toArticleListResponse(res, h.now()))
}

// Trending はトレンド記事を返す。
// GET /api/articles/trending
func (h *NewsHandler) Trending(w http.ResponseWriter, r *http.Request) {
	res := h.news.Trending(r.Context(), middleware.OptionalUserID(r.Context()), wantsRefresh(r))
	writeJSON(w, http.StatusOK, toArticleListResponse(res, h.now()))
}

// Recent は新着記事を返す。
// GET /api/articles/recent
func (h *NewsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	res := h.news.Recent(r.Context(), middleware.OptionalUserID(r.Context()), wantsRefresh(r))
	writeJSON(w, http.StatusOK, toArticleListResponse(res, h.now()))
}

// Search はキーワード検索の結果を返す。
// GET /api/articles/search?q=xxx
func (h *NewsHandler) Search(w http.ResponseWriter, r *http.Request) {
	articles, err := h.news.Search(r.Context(), middleware.OptionalUserID(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleListResponse{
		Articles: toArticleResponses(articles, h.now()),
		Source:   string(news.SourceNetwork),
	})
}

// GetArticle は記事詳細を返す。
// GET /api/articles/{id}
func (h *NewsHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.news.LoadDetail(r.Context(), middleware.OptionalUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponse(article, h.now()))
}

// wantsRefresh はクエリのrefreshが真値かどうかを返す。
func wantsRefresh(r *http.Request) bool {
	v := r.URL.Query().Get("refresh")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
