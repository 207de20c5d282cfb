package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/metrics"
	"github.com/dreamroad/dreamroad/internal/middleware"
	"github.com/dreamroad/dreamroad/internal/model"
	"github.com/dreamroad/dreamroad/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// pageData はページテンプレートに渡す値。
type pageData struct {
	Title   string
	Group   string
	Session *model.Session
	Profile model.Profile
	Target  string
}

// PageHandler はルートテーブルのページを描画する。
// ページ本文は最小限のシェルのみ。
type PageHandler struct {
	store    session.Store
	recorder middleware.GuardRecorder
}

// NewPageHandler はPageHandlerを生成する。recorderはnilでもよい。
func NewPageHandler(store session.Store, recorder middleware.GuardRecorder) *PageHandler {
	return &PageHandler{store: store, recorder: recorder}
}

// ServeClient はクライアントガードでページを保護するハンドラーを返す。
// 永続化ストアのセッションを1回だけ読み、プレースホルダー・本文・遷移のいずれかを描画する。
// ストア側のセッションはCookieのセッションと一致しない場合に破棄される。
func (h *PageHandler) ServeClient(rule access.Rule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guard := access.NewClientGuard(rule)
		provider := h.storeProvider(r)
		guard.Mount(r.Context(), sessionReader(r, provider))

		if h.recorder != nil {
			h.recorder.RecordGuardDecision(metrics.PointClient, outcomeOf(guard))
		}

		data := pageData{Title: rule.Title, Group: rule.Group, Session: guard.Session()}
		switch guard.View() {
		case access.ViewContent:
			if data.Session != nil && provider != nil {
				if prof, err := provider.Profile(r.Context()); err == nil {
					data.Profile = prof
				}
			}
			render(w, "page", data)
		case access.ViewNothing:
			data.Target = guard.Target()
			render(w, "navigate", data)
		default:
			render(w, "placeholder", data)
		}
	}
}

// ServeServer はサーバーガード通過後のページを描画するハンドラーを返す。
// セッションはServerGuardミドルウェアがコンテキストに格納したものを使う。
func (h *PageHandler) ServeServer(rule access.Rule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{Title: rule.Title, Group: rule.Group}
		if s, ok := middleware.SessionFromContext(r.Context()); ok {
			data.Session = s
			if provider := h.storeProvider(r); provider != nil {
				if prof, err := provider.Profile(r.Context()); err == nil {
					data.Profile = prof
				}
			}
		}
		render(w, "page", data)
	}
}

type guardResponseBody struct {
	Path   string `json:"path"`
	Group  string `json:"group,omitempty"`
	State  string `json:"state"`
	Target string `json:"target,omitempty"`
}

// GuardStatus はフロントエンドのページ遷移用にクライアントガードの判定結果を返す。
// テーブルに無いパスは常にauthorizedとなる。
// GET /api/auth/guard?path=/profile
func (h *PageHandler) GuardStatus(table access.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" || path[0] != '/' {
			handleServiceError(w, model.NewInvalidRequestError("pathは/から始まる必要があります"))
			return
		}

		body := guardResponseBody{Path: path, State: access.StateAuthorized.String()}
		if rule, ok := table.Lookup(path); ok {
			guard := access.NewClientGuard(rule)
			guard.Mount(r.Context(), sessionReader(r, h.storeProvider(r)))
			if h.recorder != nil {
				h.recorder.RecordGuardDecision(metrics.PointClient, outcomeOf(guard))
			}
			body.Group = rule.Group
			body.State = guard.State().String()
			body.Target = guard.Target()
		}

		middleware.WriteJSON(w, http.StatusOK, body)
	}
}

func (h *PageHandler) storeProvider(r *http.Request) *session.StoreProvider {
	if h.store == nil {
		return nil
	}
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		return nil
	}
	return session.NewStoreProvider(h.store, clientID)
}

// sessionReader はクライアントガードが読むセッションの取得元を返す。
// ストアが使えない場合は未認証として評価する。
func sessionReader(r *http.Request, provider *session.StoreProvider) access.SessionReader {
	if provider == nil {
		return anonymousReader{}
	}
	return session.CookieBoundReader{Store: provider, Cookie: session.FromRequest(r)}
}

// anonymousReader は常にセッションなしを返す。
type anonymousReader struct{}

func (anonymousReader) Read(_ context.Context) (*model.Session, error) {
	return nil, nil
}

func outcomeOf(g *access.ClientGuard) string {
	if g.State() == access.StateAuthorized {
		return access.Allow().Outcome()
	}
	return access.RedirectTo(g.Target()).Outcome()
}

func render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}
