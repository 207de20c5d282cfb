package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/metrics"
	"github.com/dreamroad/dreamroad/internal/session"
)

// BlockedRedirectPath は利用停止アカウントの遷移先。
const BlockedRedirectPath = access.PathLogin + "?reason=blocked"

// GuardRecorder はガード判定を記録するインターフェース。
type GuardRecorder interface {
	RecordGuardDecision(point, outcome string)
}

// NewEdgeFilterMiddleware はページ読み込み前の粗い判定を行うミドルウェアを返す。
// 判定にはCookieのセッションのみを使用する。recorderはnilでもよい。
func NewEdgeFilterMiddleware(filter *access.EdgeFilter, recorder GuardRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, skipped := filter.Evaluate(r.URL.Path, session.FromRequest(r))
			if skipped {
				next.ServeHTTP(w, r)
				return
			}

			if recorder != nil {
				recorder.RecordGuardDecision(metrics.PointEdge, d.Outcome())
			}
			if !d.Allow {
				slog.Debug("edge filter redirect",
					slog.String("path", r.URL.Path),
					slog.String("redirect_to", d.RedirectTo),
				)
				http.Redirect(w, r, d.RedirectTo, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ServerGuardConfig はサーバーガードの依存関係。
type ServerGuardConfig struct {
	Rule     access.Rule
	Blocker  access.BlockChecker // nilの場合は利用停止確認を行わない
	Cookie   session.CookieConfig
	Store    session.Store // 利用停止時に永続化ストアも破棄する。nil可
	Recorder GuardRecorder
}

// NewServerGuardMiddleware はレスポンス生成前にCookieのセッションでページを保護するミドルウェアを返す。
// リダイレクトはハンドラーが一切実行される前に行う。
// 通過したセッションはコンテキストに格納される。
func NewServerGuardMiddleware(config ServerGuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromRequest(r)
			d := config.Rule.Evaluate(s)

			if config.Recorder != nil {
				config.Recorder.RecordGuardDecision(metrics.PointServer, d.Outcome())
			}
			if !d.Allow {
				http.Redirect(w, r, d.RedirectTo, http.StatusFound)
				return
			}

			if s != nil && config.Blocker != nil && config.Blocker.IsBlocked(r.Context(), s) {
				slog.Warn("blocked account signed out",
					slog.String("user_id", s.UserID),
					slog.String("role", s.Role.String()),
					slog.String("path", r.URL.Path),
				)
				clearSessions(w, r, config)
				http.Redirect(w, r, BlockedRedirectPath, http.StatusFound)
				return
			}

			if s != nil {
				r = r.WithContext(ContextWithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clearSessions はCookieと永続化ストアの両方からセッションを破棄する。
func clearSessions(w http.ResponseWriter, r *http.Request, config ServerGuardConfig) {
	if err := session.NewCookieProvider(r, w, config.Cookie).Clear(r.Context()); err != nil {
		slog.Error("failed to clear session cookies", slog.String("error", err.Error()))
	}

	if config.Store == nil {
		return
	}
	clientID, err := ClientIDFromContext(r.Context())
	if err != nil {
		return
	}
	if err := session.NewStoreProvider(config.Store, clientID).Clear(r.Context()); err != nil {
		slog.Error("failed to clear persisted session",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()),
		)
	}
}
