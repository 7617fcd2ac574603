package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
)

// BookmarkServiceInterface はブックマークハンドラーが必要とするサービスインターフェース。
type BookmarkServiceInterface interface {
	Toggle(ctx context.Context, userID, articleID string) (bool, error)
	List(ctx context.Context, userID string) ([]*model.Article, error)
}

// BookmarkHandler はブックマークのHTTPハンドラー。
type BookmarkHandler struct {
	service BookmarkServiceInterface
	now     func() time.Time
}

// NewBookmarkHandler はBookmarkHandlerを生成する。
func NewBookmarkHandler(service BookmarkServiceInterface) *BookmarkHandler {
	return &BookmarkHandler{service: service, now: time.Now}
}

// List はブックマーク済み記事を返す。
// GET /api/bookmarks
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
		return
	}

	articles, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articleListResponse{Articles: toArticleResponses(articles, h.now())})
}

// Toggle はブックマークの追加と削除を切り替える。
// POST /api/bookmarks/{articleID}/toggle
func (h *BookmarkHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
		return
	}

	articleID := chi.URLParam(r, "articleID")
	bookmarked, err := h.service.Toggle(r.Context(), userID, articleID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"article_id":    articleID,
		"is_bookmarked": bookmarked,
	})
}
