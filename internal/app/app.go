package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/auth"
	"github.com/dreamroad/dreamroad/internal/backend"
	"github.com/dreamroad/dreamroad/internal/config"
	"github.com/dreamroad/dreamroad/internal/database"
	"github.com/dreamroad/dreamroad/internal/handler"
	"github.com/dreamroad/dreamroad/internal/logger"
	"github.com/dreamroad/dreamroad/internal/metrics"
	"github.com/dreamroad/dreamroad/internal/middleware"
	"github.com/dreamroad/dreamroad/internal/repository"
	"github.com/dreamroad/dreamroad/internal/security"
	"github.com/dreamroad/dreamroad/internal/session"
	"github.com/dreamroad/dreamroad/internal/user"
	"github.com/dreamroad/dreamroad/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, nil)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
		slog.String("base_url", cfg.BaseURL),
		slog.String("store_backend", cfg.StoreBackend),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// Server はHTTPハンドラーと終了時に解放すべきリソースをまとめたもの。
type Server struct {
	Handler http.Handler

	rateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドのリソースを解放する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// NewServer は設定と永続化ストアから全依存関係をワイヤリングしたServerを返す。
// regにはアプリケーションのメトリクスが登録される。
func NewServer(cfg *config.Config, store session.Store, reg *prometheus.Registry) (*Server, error) {
	// 1. ルートテーブルの検証
	table := access.DefaultTable()
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. バックエンドAPIクライアント
	backendClient := backend.NewClient(
		&http.Client{Timeout: cfg.BackendTimeout},
		cfg.BackendURL,
		slog.Default(),
	)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(backendClient, security.NewNameSanitizer(), slog.Default())
	statusService := user.NewStatusService(backendClient, collector)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)

	deps := &handler.RouterDeps{
		Logger:  slog.Default(),
		Table:   table,
		Store:   store,
		Blocker: statusService,
		Cookie: session.CookieConfig{
			MaxAge: cfg.SessionMaxAgeDuration(),
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		ClientID: middleware.ClientIDConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService: authService,

		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	}

	return &Server{
		Handler:     handler.NewRouter(deps),
		rateLimiter: rateLimiter,
	}, nil
}

// newRegistry はGoランタイムとプロセスのメトリクスを含むレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// openStore は設定に応じた永続化ストアを返す。
// 戻り値の*sql.DBはメモリストアの場合nil。
func openStore(cfg *config.Config) (session.Store, *sql.DB, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		slog.Warn("using in-memory client store; sessions are lost on restart")
		return session.NewMemoryStore(), nil, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresClientStore(db), db, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
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

// runServe はサーバーモードで起動する。
// 永続化ストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	srv, err := NewServer(cfg, store, newRegistry())
	if err != nil {
		return err
	}
	defer srv.Close()

	return serveUntilSignal(&http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil)
}

// runWorker はワーカーモードで起動する。
// client_storeのクリーンアップジョブを定期実行し、/health と /metrics を公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.StoreBackend != config.StoreBackendPostgres {
		return fmt.Errorf("worker requires STORE_BACKEND=%s", config.StoreBackendPostgres)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)
	cleanupJob.RetentionDays = cfg.StoreRetentionDays

	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", metrics.Handler(reg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		slog.Info("worker starting",
			slog.Int("retention_days", cleanupJob.RetentionDays),
			slog.Duration("interval", cleanup.DefaultInterval),
		)
		cleanupJob.Start(ctx, cleanup.DefaultInterval)
	}()

	err = serveUntilSignal(&http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, cancel)

	<-done
	slog.Info("worker stopped gracefully")
	return err
}

// serveUntilSignal はHTTPサーバーを起動し、SIGINTまたはSIGTERMでシャットダウンする。
// onStopはシャットダウン開始時に呼ばれる。nilでもよい。
func serveUntilSignal(server *http.Server, onStop func()) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if onStop != nil {
			onStop()
		}
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}

	slog.Info("shutting down HTTP server...")
	if onStop != nil {
		onStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreBackend != config.StoreBackendPostgres {
		return fmt.Errorf("migrate requires STORE_BACKEND=%s", config.StoreBackendPostgres)
	}

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
