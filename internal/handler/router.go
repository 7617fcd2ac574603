package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/docbao/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通を確認する依存（DB等）。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事・カテゴリ
	NewsService     NewsServiceInterface
	CategoryService CategoryServiceInterface

	BookmarkService BookmarkServiceInterface
	UserService     UserServiceInterface
	AccountService  AccountServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → SecurityHeaders → CORS → OptionalSession → RateLimit(General)
//
// ログインが必要なルートはさらに Session → CSRF を通る。
// /health と /metrics はセッションとレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	newsHandler := NewNewsHandler(deps.NewsService, deps.CategoryService)
	bookmarkHandler := NewBookmarkHandler(deps.BookmarkService)
	userHandler := NewUserHandler(deps.UserService, deps.AccountService, deps.AuthConfig)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// 認証ルート（ログイン前に呼ばれるためCSRF検証の対象外）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Get("/{provider}/login", authHandler.Login)
			r.Get("/{provider}/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/api/home", newsHandler.Home)
		r.Get("/api/categories", newsHandler.ListCategories)
		r.Get("/api/categories/{id}/articles", newsHandler.CategoryArticles)

		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/latest", newsHandler.Latest)
			r.Get("/trending", newsHandler.Trending)
			r.Get("/recent", newsHandler.Recent)
			r.With(deps.RateLimiter.SearchMiddleware()).Get("/search", newsHandler.Search)
			r.Get("/{id}", newsHandler.GetArticle)
		})

		// ログインが必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Get("/api/bookmarks", bookmarkHandler.List)
			r.Post("/api/bookmarks/{articleID}/toggle", bookmarkHandler.Toggle)
			r.Patch("/api/users/me", userHandler.UpdateProfile)
			r.Delete("/api/users/me", userHandler.Withdraw)
		})
	})

	return r
}

// healthHandler は依存先の疎通を確認するハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
