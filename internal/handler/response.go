package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/news"
	"github.com/hitoshi/docbao/internal/timeago"
)

// articleResponse は記事のAPIレスポンス。
type articleResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Content      string `json:"content,omitempty"`
	ImageURL     string `json:"image_url"`
	SourceURL    string `json:"source_url"`
	Source       string `json:"source"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	CategoryText string `json:"category_text,omitempty"`
	PublishedAt  string `json:"published_at"`
	RelativeTime string `json:"relative_time"`
	ViewCount    int    `json:"view_count"`
	IsBookmarked bool   `json:"is_bookmarked"`
}

// articleListResponse は記事一覧のAPIレスポンス。
// Messageはフォールバック時のみ設定される。
type articleListResponse struct {
	Articles []articleResponse `json:"articles"`
	Message  string            `json:"message,omitempty"`
	Source   string            `json:"source,omitempty"`
}

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IconEmoji    string `json:"icon_emoji"`
	ArticleCount int    `json:"article_count"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

func toArticleResponse(a *model.Article, now time.Time) articleResponse {
	resp := articleResponse{
		ID:           a.ID,
		Title:        a.Title,
		Summary:      a.Summary,
		Content:      a.Content,
		ImageURL:     a.ImageURL,
		SourceURL:    a.SourceURL,
		Source:       a.Source,
		CategoryID:   a.CategoryID,
		CategoryName: a.CategoryName,
		CategoryText: a.CategoryText,
		RelativeTime: timeago.Format(a.PublishedAt, now),
		ViewCount:    a.ViewCount,
		IsBookmarked: a.IsBookmarked,
	}
	if !a.PublishedAt.IsZero() {
		resp.PublishedAt = a.PublishedAt.Format(time.RFC3339)
	}
	return resp
}

func toArticleResponses(articles []*model.Article, now time.Time) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		if a == nil {
			continue
		}
		out = append(out, toArticleResponse(a, now))
	}
	return out
}

func toArticleListResponse(res news.LoadResult, now time.Time) articleListResponse {
	return articleListResponse{
		Articles: toArticleResponses(res.Articles, now),
		Message:  res.Message,
		Source:   string(res.Source),
	}
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		IconEmoji:    c.IconEmoji,
		ArticleCount: c.ArticleCount,
	}
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeArticleNotFound, model.ErrCodeCategoryNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeLoginRequired, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeEmailTaken, model.ErrCodeUsernameTaken:
		return http.StatusConflict
	case model.ErrCodeInvalidRequest, model.ErrCodeUnsupportedProvider:
		return http.StatusBadRequest
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSONBody はリクエストボディをJSONとして読み取る。失敗時はエラーレスポンスを書き込みfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Không đọc được nội dung yêu cầu"))
		return false
	}
	return true
}
