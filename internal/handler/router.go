package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gatehouse/internal/metrics"
	"github.com/hitoshi/gatehouse/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	SessionCookie     *middleware.SessionCookie
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// アカウント・お問い合わせ
	AccountService AccountServiceInterface
	ContactService ContactServiceInterface

	// ヘルスチェック・診断
	Firebase        FirebaseInfo
	SessionPinger   Pinger
	FirestoreProber FirestoreProber

	// MetricsHandler は/metricsで公開するハンドラー。nilの場合はルートを登録しない。
	MetricsHandler http.Handler
	// StaticDir は静的ファイルのディレクトリ。空の場合は配信しない。
	StaticDir string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → Recovery → SecurityHeaders → CORS → Session
//
// Recoveryをログとメトリクスの内側に置き、panicも500として記録されるようにする。
// 認証系の書き込みエンドポイントにはクライアントIP単位のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.SessionCookie))

	accountHandler := NewAccountHandler(deps.AccountService, deps.SessionCookie)
	contactHandler := NewContactHandler(deps.ContactService)
	healthHandler := NewHealthHandler(deps.Firebase, deps.SessionPinger)

	r.Get("/health", healthHandler.Health)

	if deps.FirestoreProber != nil {
		r.Get("/test-firestore", NewDiagnosticHandler(deps.FirestoreProber).TestFirestore)
	}

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// レート制限対象のルート
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Post("/register", accountHandler.Register)
		r.Post("/login", accountHandler.Login)
		r.Post("/contact", contactHandler.Submit)
		r.Post("/api/password", accountHandler.ChangePassword)
	})

	r.Get("/api/user", accountHandler.CurrentUser)
	r.Post("/logout", accountHandler.Logout)

	if deps.StaticDir != "" {
		r.NotFound(NewStaticHandler(deps.StaticDir).ServeHTTP)
	}

	return r
}
