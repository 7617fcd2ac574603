package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/docbao/internal/auth"
	"github.com/hitoshi/docbao/internal/bookmark"
	"github.com/hitoshi/docbao/internal/cache"
	"github.com/hitoshi/docbao/internal/category"
	"github.com/hitoshi/docbao/internal/config"
	"github.com/hitoshi/docbao/internal/database"
	"github.com/hitoshi/docbao/internal/handler"
	"github.com/hitoshi/docbao/internal/logger"
	"github.com/hitoshi/docbao/internal/metrics"
	"github.com/hitoshi/docbao/internal/middleware"
	"github.com/hitoshi/docbao/internal/model"
	"github.com/hitoshi/docbao/internal/news"
	"github.com/hitoshi/docbao/internal/repository"
	"github.com/hitoshi/docbao/internal/scrape"
	"github.com/hitoshi/docbao/internal/security"
	"github.com/hitoshi/docbao/internal/user"
	"github.com/hitoshi/docbao/internal/worker/cleanup"
	"github.com/hitoshi/docbao/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !logger.SetLevel(cfg.LogLevel) {
		slog.Warn("unknown log level, falling back to info", slog.String("log_level", cfg.LogLevel))
	}
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		Usage(w)
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("cache_backend", cfg.CacheBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// services はserveとworkerで共有するドメインサービス群。
type services struct {
	store     cache.Store
	writer    *cache.AsyncWriter
	news      *news.Service
	category  *category.Service
	bookmarks *bookmark.Service

	closeStore func() error
}

// buildServices はキャッシュバックエンドを選択し、取得・抽出・記事サービスを組み立てる。
func buildServices(cfg *config.Config, db *sql.DB, recorder metrics.Recorder, log *slog.Logger) (*services, error) {
	store, closeStore, err := newCacheStore(cfg, db)
	if err != nil {
		return nil, err
	}

	guard := security.NewSSRFGuard(hostOf(cfg.ScrapeBaseURL), hostOf(cfg.ScrapeSearchURL))
	fetcher := scrape.NewFetcher(
		guard.NewSafeClient(cfg.ScrapeTimeout), guard,
		log, recorder, cfg.ScrapeMaxBodySize,
	)

	catalog := category.Catalog()
	extractor, err := scrape.NewExtractor(scrape.ExtractorConfig{
		BaseURL:    cfg.ScrapeBaseURL,
		Categories: catalog,
	}, security.NewTextSanitizer())
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	writer := cache.NewAsyncWriter(store, log, recorder)
	categoryService := category.NewService(repository.NewPostgresCategoryRepo(db), log)
	bookmarkService := bookmark.NewService(repository.NewPostgresBookmarkRepo(db), store, log)

	newsService := news.NewService(news.Config{
		BaseURL:       cfg.ScrapeBaseURL,
		SearchURL:     cfg.ScrapeSearchURL,
		MaxConcurrent: cfg.ScrapeMaxConcurrent,
		Categories:    catalog,
	}, news.Deps{
		Fetcher:   fetcher,
		Extractor: extractor,
		Store:     store,
		Writer:    writer,
		Bookmarks: bookmarkService,
		Counter:   categoryService,
		Logger:    log,
		Metrics:   recorder,
	})

	return &services{
		store:      store,
		writer:     writer,
		news:       newsService,
		category:   categoryService,
		bookmarks:  bookmarkService,
		closeStore: closeStore,
	}, nil
}

// newCacheStore は設定に応じた記事キャッシュを返す。
// redisの場合は接続を確認し、終了時に閉じる関数を返す。
func newCacheStore(cfg *config.Config, db *sql.DB) (cache.Store, func() error, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established", slog.String("addr", opts.Addr))
		return cache.NewRedisStore(client), client.Close, nil
	default:
		return repository.NewPostgresArticleRepo(db), func() error { return nil }, nil
	}
}

// newOAuthProviders は設定が揃っているOAuthプロバイダーのみを返す。
func newOAuthProviders(cfg *config.Config) map[string]auth.OAuthProvider {
	providers := make(map[string]auth.OAuthProvider)
	if cfg.GoogleEnabled() {
		providers[model.ProviderGoogle] = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}
	if cfg.FacebookEnabled() {
		providers[model.ProviderFacebook] = auth.NewFacebookOAuthProvider(auth.FacebookOAuthConfig{
			ClientID:     cfg.FacebookClientID,
			ClientSecret: cfg.FacebookClientSecret,
			RedirectURL:  cfg.FacebookRedirectURL,
		})
	}
	return providers
}

// buildRouter はAPIサーバーのルーターを組み立てる。
func buildRouter(cfg *config.Config, db *sql.DB, svc *services, rl *middleware.RateLimiter, gatherer prometheus.Gatherer) http.Handler {
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	authService := auth.NewService(
		newOAuthProviders(cfg), userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	accountService := user.NewService(userRepo, sessionRepo, repository.NewPostgresBookmarkRepo(db), slog.Default())

	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    rl,
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(gatherer),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		NewsService:     svc.news,
		CategoryService: svc.category,
		BookmarkService: svc.bookmarks,
		UserService:     authService,
		AccountService:  accountService,
	})
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行い、
// 実行中の非同期キャッシュ書き込みの完了を待ってから終了する。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(reg)

	svc, err := buildServices(cfg, db, recorder, slog.Default())
	if err != nil {
		return err
	}
	defer svc.closeStore()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitSearch))
	defer rl.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      buildRouter(cfg, db, svc, rl, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	svc.writer.Wait()

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 記事キャッシュの定期更新と日次クリーンアップを実行する。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	log := slog.Default()
	svc, err := buildServices(cfg, db, metrics.Nop{}, log)
	if err != nil {
		return err
	}
	defer svc.closeStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	cleanupJob := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), log)
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	scheduler := refresh.NewScheduler(svc.news, log, cfg.RefreshSchedule, 0)
	if err := scheduler.AddJob(ctx, "@daily", "cleanup", cleanupJob.Run); err != nil {
		return err
	}

	// ブロッキング
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	svc.writer.Wait()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("from_version", uint64(status.From)),
		slog.Uint64("to_version", uint64(status.To)),
		slog.Bool("applied", status.Applied()),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

// hostOf はURLのホスト名を返す。解析できない場合は空文字列。
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
