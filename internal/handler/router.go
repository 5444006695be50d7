package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/calman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// イベント
	EventService  EventServiceInterface
	EventRecorder EventRecorder

	// ウィンドウ表示
	WeekStart  time.Weekday
	VisibleMax int

	// フィード購読
	FeedService FeedServiceInterface

	// ヘルスチェック
	Pinger Pinger

	// メトリクス
	StatusRecorder middleware.HTTPStatusRecorder
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeaders → Recovery → Logging → Metrics → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	eventHandler := NewEventHandler(deps.EventService, deps.EventRecorder)
	windowHandler := NewWindowHandler(deps.EventService, deps.WeekStart, deps.VisibleMax)
	feedHandler := NewFeedHandler(deps.FeedService)
	exportHandler := NewExportHandler(deps.EventService)
	healthHandler := NewHealthHandler(deps.Pinger)

	// --- 運用ルート（レート制限の外） ---

	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// イベント管理
		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Post("/", eventHandler.CreateEvent)
			r.Put("/", eventHandler.UpdateEvent)
			r.Delete("/", eventHandler.DeleteEvent)

			// GET /events/export.ics - iCalendar形式でのエクスポート
			r.Get("/export.ics", exportHandler.ExportICS)
		})

		// ウィンドウ計算
		r.Get("/api/window", windowHandler.GetWindow)

		// フィード購読管理
		r.Route("/api/feeds", func(r chi.Router) {
			// POST /api/feeds - フィード購読（取り込み専用レート制限を追加）
			r.With(deps.RateLimiter.ImportMiddleware()).Post("/", feedHandler.Subscribe)

			r.Get("/", feedHandler.ListFeeds)
			r.Delete("/{id}", feedHandler.Unsubscribe)
		})
	})

	return r
}
