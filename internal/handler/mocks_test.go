package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/docbao/internal/auth"
	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/news"
)

// --- モック定義 ---

type mockNewsService struct {
	loadByCategoryFn    func(ctx context.Context, userID, categoryID string, refresh bool) news.LoadResult
	loadAllCategoriesFn func(ctx context.Context, userID string) map[string]news.LoadResult
	loadDetailFn        func(ctx context.Context, userID, articleID string) (*model.Article, error)
	latestFn            func(ctx context.Context, userID string, refresh bool) news.LoadResult
	trendingFn          func(ctx context.Context, userID string, refresh bool) news.LoadResult
	recentFn            func(ctx context.Context, userID string, refresh bool) news.LoadResult
	searchFn            func(ctx context.Context, userID, query string) ([]*model.Article, error)
}

func (m *mockNewsService) LoadByCategory(ctx context.Context, userID, categoryID string, refresh bool) news.LoadResult {
	if m.loadByCategoryFn != nil {
		return m.loadByCategoryFn(ctx, userID, categoryID, refresh)
	}
	return news.LoadResult{Key: categoryID}
}

func (m *mockNewsService) LoadAllCategories(ctx context.Context, userID string) map[string]news.LoadResult {
	if m.loadAllCategoriesFn != nil {
		return m.loadAllCategoriesFn(ctx, userID)
	}
	return map[string]news.LoadResult{}
}

func (m *mockNewsService) LoadDetail(ctx context.Context, userID, articleID string) (*model.Article, error) {
	if m.loadDetailFn != nil {
		return m.loadDetailFn(ctx, userID, articleID)
	}
	return nil, model.NewArticleNotFoundError(articleID)
}

func (m *mockNewsService) Latest(ctx context.Context, userID string, refresh bool) news.LoadResult {
	if m.latestFn != nil {
		return m.latestFn(ctx, userID, refresh)
	}
	return news.LoadResult{}
}

func (m *mockNewsService) Trending(ctx context.Context, userID string, refresh bool) news.LoadResult {
	if m.trendingFn != nil {
		return m.trendingFn(ctx, userID, refresh)
	}
	return news.LoadResult{}
}

func (m *mockNewsService) Recent(ctx context.Context, userID string, refresh bool) news.LoadResult {
	if m.recentFn != nil {
		return m.recentFn(ctx, userID, refresh)
	}
	return news.LoadResult{}
}

func (m *mockNewsService) Search(ctx context.Context, userID, query string) ([]*model.Article, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, userID, query)
	}
	return nil, nil
}

type mockCategoryService struct {
	listFn func(ctx context.Context) ([]*model.Category, error)
}

func (m *mockCategoryService) List(ctx context.Context) ([]*model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Category{{ID: "the-thao", Name: "Thể thao", IconEmoji: "🏈"}}, nil
}

func (m *mockCategoryService) Get(_ context.Context, id string) (*model.Category, error) {
	if id == "the-thao" || id == "kinh-doanh" {
		return &model.Category{ID: id}, nil
	}
	return nil, model.NewCategoryNotFoundError(id)
}

type mockBookmarkService struct {
	toggleFn func(ctx context.Context, userID, articleID string) (bool, error)
	listFn   func(ctx context.Context, userID string) ([]*model.Article, error)
}

func (m *mockBookmarkService) Toggle(ctx context.Context, userID, articleID string) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, articleID)
	}
	return true, nil
}

func (m *mockBookmarkService) List(ctx context.Context, userID string) ([]*model.Article, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

type mockAuthService struct {
	signUpFn         func(ctx context.Context, in auth.SignUpInput) (*model.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*model.Session, error)
	getLoginURLFn    func(provider, state string) (string, error)
	handleCallbackFn func(ctx context.Context, provider, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) SignUp(ctx context.Context, in auth.SignUpInput) (*model.Session, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, in)
	}
	return &model.Session{ID: "new-session"}, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return &model.Session{ID: "new-session"}, nil
}

func (m *mockAuthService) GetLoginURL(provider, state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(provider, state)
	}
	return "https://idp.example.com/auth?state=" + state, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, provider, code)
	}
	return &model.Session{ID: "oauth-session"}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return &model.User{ID: "user-1", Username: "lan", Email: "lan@example.com", DisplayName: "Lan"}, nil
}

type mockUserService struct {
	updateProfileFn func(ctx context.Context, userID string, in auth.ProfileInput) (*model.User, error)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, in auth.ProfileInput) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, in)
	}
	return &model.User{ID: userID}, nil
}

type mockAccountService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockAccountService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// --- ヘルパー ---

// fixedNow はテストで使用する基準時刻。
var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// withUser はログイン済みユーザーのコンテキストを持つリクエストを返す。
func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// withURLParam はchiのURLパラメータを設定したリクエストを返す。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return req
}
