// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
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

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/config"
	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/handler"
	"github.com/hitoshi/taskman/internal/logger"
	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/repository"
	"github.com/hitoshi/taskman/internal/task"
	"github.com/hitoshi/taskman/internal/user"
	"github.com/hitoshi/taskman/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cleanup.ValidateSchedule(cfg.SessionCleanupSchedule); err != nil {
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
		slog.String("database_driver", cfg.DatabaseDriver),
		slog.String("session_store", cfg.SessionStore),
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

// server はHTTPハンドラーと、バックグラウンド処理に必要なサービスをまとめたもの。
type server struct {
	handler  http.Handler
	sessions *auth.SessionManager
	metrics  *metrics.Collector
}

// newServer はストアからサービス層・ルーターを組み立てる。
// メトリクスはサーバーごとのレジストリに登録する。
func newServer(cfg *config.Config, st *stores) (*server, error) {
	mode, err := task.ParseOwnershipMode(cfg.TaskOwnership)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	sessions := auth.NewSessionManager(st.sessions, auth.SessionConfig{MaxAge: cfg.SessionMaxAge})

	userService := user.NewService(st.users, hasher, collector)
	taskService := task.NewService(st.tasks, st.users, mode, collector)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Sessions:          sessions,
		HealthChecker:     st.health,
		MetricsHandler:    metrics.Handler(registry),
		UserService:       userService,
		TaskService:       taskService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: sessions.MaxAge(),
		},
		TaskConfig: handler.TaskHandlerConfig{
			RequireSessionForCreate: mode == task.OwnershipStrict,
		},
	})

	return &server{
		handler:  router,
		sessions: sessions,
		metrics:  collector,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	srv, err := newServer(cfg, st)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// メモリストアはプロセス内でしか掃除できない
	if cfg.SessionStore == config.SessionStoreMemory {
		job := cleanup.NewCleanupJob(srv.sessions, slog.Default(), srv.metrics)
		go func() {
			if err := job.Start(ctx, cfg.SessionCleanupSchedule); err != nil {
				slog.Error("session cleanup failed to start", slog.String("error", err.Error()))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動し、期限切れセッションを定期削除する。
// セッションがデータベースに保存されている場合のみ意味を持つ。
func runWorker(cfg *config.Config) error {
	if cfg.SessionStore != config.SessionStoreDatabase {
		return fmt.Errorf("worker requires SESSION_STORE=%s (got %q)", config.SessionStoreDatabase, cfg.SessionStore)
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	sessions := auth.NewSessionManager(st.sessions, auth.SessionConfig{MaxAge: cfg.SessionMaxAge})
	job := cleanup.NewCleanupJob(sessions, slog.Default(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting", slog.String("schedule", cfg.SessionCleanupSchedule))

	if err := job.Start(ctx, cfg.SessionCleanupSchedule); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースのスキーマを最新にする。
// PostgreSQLは埋め込みSQLマイグレーション、SQLiteはGORMのAutoMigrateを使う。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if cfg.DatabaseDriver == config.DriverSQLite {
		db, err := database.OpenSQLite(cfg.DatabaseURL, slog.Default())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer sqlDB.Close()

		if err := repository.AutoMigrateGorm(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
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

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.Scheme == "" {
		// SQLiteのファイルパス
		return raw
	}
	return u.Redacted()
}
