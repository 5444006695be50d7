// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/hitoshi/calman/internal/config"
	"github.com/hitoshi/calman/internal/database"
	"github.com/hitoshi/calman/internal/event"
	"github.com/hitoshi/calman/internal/feed"
	"github.com/hitoshi/calman/internal/handler"
	"github.com/hitoshi/calman/internal/ics"
	"github.com/hitoshi/calman/internal/logger"
	"github.com/hitoshi/calman/internal/metrics"
	"github.com/hitoshi/calman/internal/middleware"
	"github.com/hitoshi/calman/internal/repository"
	"github.com/hitoshi/calman/internal/security"
	"github.com/hitoshi/calman/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
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

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	eventRepo := repository.NewPostgresEventRepo(db)
	feedRepo := repository.NewPostgresCalendarFeedRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	guard := security.NewFetchGuard()

	// 5. ドメインサービスの初期化
	eventService := event.NewService(eventRepo)

	detector := ics.NewDetector(guard, cfg.FetchTimeout, cfg.FetchMaxSize)
	refresher := refresh.NewRefresher(
		feedRepo, eventRepo, guard, event.NewValidator(), collector,
		slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize,
		cfg.MaxRefreshErrors, cfg.RefreshMaxConcurrent,
	)
	feedService := feed.NewFeedService(feedRepo, eventRepo, detector, refresher)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitImport),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		EventService:  eventService,
		EventRecorder: collector,

		WeekStart:  cfg.WeekStart,
		VisibleMax: cfg.VisibleEventsMax,

		FeedService: feedService,

		Pinger: db,

		StatusRecorder: collector,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はリフレッシュワーカーモードで起動する。
// DB接続を開き、cronスケジュールに従って全アクティブ購読をリフレッシュする。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	eventRepo := repository.NewPostgresEventRepo(db)
	feedRepo := repository.NewPostgresCalendarFeedRepo(db)

	// 3. リフレッシャーの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	guard := security.NewFetchGuard()

	refresher := refresh.NewRefresher(
		feedRepo, eventRepo, guard, event.NewValidator(), collector,
		slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize,
		cfg.MaxRefreshErrors, cfg.RefreshMaxConcurrent,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. cronスケジューラの起動
	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshCron, func() {
		if err := refresher.RefreshAll(ctx); err != nil {
			slog.Error("refresh cycle failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
	}

	slog.Info("worker starting",
		slog.String("refresh_cron", cfg.RefreshCron),
		slog.Int("max_concurrent", cfg.RefreshMaxConcurrent),
	)

	// 起動直後に1回実行
	if err := refresher.RefreshAll(ctx); err != nil {
		slog.Error("initial refresh cycle failed", slog.String("error", err.Error()))
	}

	c.Start()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	slog.Info("shutting down worker...")
	cancel()

	// 実行中のジョブの完了を待つ
	<-c.Stop().Done()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
