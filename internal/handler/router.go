package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/middleware"
)

// UserRouteService はユーザー・ログイン系のルートが必要とするサービス。
// user.Serviceが実装する。
type UserRouteService interface {
	UserServiceInterface
	AuthServiceInterface
}

// SessionRouteService はセッションの解決・開始・終了を行うサービス。
// auth.SessionManagerが実装する。
type SessionRouteService interface {
	middleware.SessionResolver
	SessionServiceInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           middleware.HTTPMetrics // nilの場合はメトリクスを記録しない
	CORSAllowedOrigin string
	Sessions          SessionRouteService

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	UserService UserRouteService
	TaskService TaskServiceInterface

	AuthConfig AuthHandlerConfig
	TaskConfig TaskHandlerConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → CORS → SecurityHeaders → Session
//
// セッションミドルウェアは匿名リクエストも通すため、ログイン必須のルートは
// RequireSessionで個別に保護する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionMiddleware(deps.Sessions))

	authHandler := NewAuthHandler(deps.UserService, deps.Sessions, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	taskHandler := NewTaskHandler(deps.TaskService, deps.TaskConfig)
	homeHandler := NewHomeHandler(deps.TaskService)

	// --- 運用 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証 ---
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)
	r.Post("/logout", authHandler.Logout)
	r.Get("/me", authHandler.Me)
	r.With(middleware.RequireSession(authHandler.config.LoginPath)).Get("/home", homeHandler.Home)

	// --- ユーザー ---
	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.Create)
		r.Get("/", userHandler.List)
		r.Get("/{id}", userHandler.Get)
	})

	// --- タスク ---
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", taskHandler.Create)
		r.Get("/", taskHandler.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.Get)
			r.Put("/", taskHandler.Update)
			r.Delete("/", taskHandler.Delete)
		})
	})

	return r
}
