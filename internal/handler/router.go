package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/metrics"
	"github.com/dreamroad/dreamroad/internal/middleware"
	"github.com/dreamroad/dreamroad/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ルートテーブルとセッション
	Table   access.Table
	Store   session.Store
	Blocker access.BlockChecker
	Cookie  session.CookieConfig

	// ミドルウェア依存
	CSRF              middleware.CSRFConfig
	ClientID          middleware.ClientIDConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface

	// メトリクス
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Recovery → Logging → Metrics → SecurityHeaders → ClientID → EdgeFilter
//
// ページルートはルートテーブルから生成し、サーバーモードのルールにはServerGuardを付与する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewClientIDMiddleware(deps.ClientID))
	r.Use(middleware.NewEdgeFilterMiddleware(access.NewEdgeFilter(deps.Table), guardRecorder(deps.Metrics)))

	authHandler := NewAuthHandler(deps.AuthService, deps.Store, deps.Cookie, loginRecorder(deps.Metrics))
	pageHandler := NewPageHandler(deps.Store, guardRecorder(deps.Metrics))

	// --- 運用エンドポイント ---
	r.Get("/health", HealthCheck)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- API ---
	// ミドルウェアスタック: NoStore → CORS → CSRF → RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewNoStoreMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
			r.Get("/guard", pageHandler.GuardStatus(deps.Table))
		})
	})

	// --- ページ ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewNoStoreMiddleware())

		for _, rule := range deps.Table {
			var h http.Handler
			switch rule.Mode {
			case access.GuardServer:
				guard := middleware.NewServerGuardMiddleware(middleware.ServerGuardConfig{
					Rule:     rule,
					Blocker:  deps.Blocker,
					Cookie:   deps.Cookie,
					Store:    deps.Store,
					Recorder: guardRecorder(deps.Metrics),
				})
				h = guard(pageHandler.ServeServer(rule))
			default:
				h = pageHandler.ServeClient(rule)
			}

			for _, pattern := range chiPatterns(rule.Patterns) {
				r.Method(http.MethodGet, pattern, h)
			}
		}
	})

	return r
}

// HealthCheck はヘルスチェックエンドポイント。
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// chiPatterns はテーブルのパターンをchiのルートパターンに展開する。
// "/jobs/*" は "/jobs" と "/jobs/*" の2つになる。
func chiPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns)*2)
	for _, p := range patterns {
		if base, ok := strings.CutSuffix(p, "/*"); ok {
			out = append(out, base, p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// guardRecorder はnilのコレクターをnilのインターフェースとして渡す。
func guardRecorder(m metrics.MetricsCollector) middleware.GuardRecorder {
	if m == nil {
		return nil
	}
	return m
}

func loginRecorder(m metrics.MetricsCollector) LoginRecorder {
	if m == nil {
		return nil
	}
	return m
}
