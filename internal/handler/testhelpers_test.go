package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/auth"
	"github.com/dreamroad/dreamroad/internal/metrics"
	"github.com/dreamroad/dreamroad/internal/middleware"
	"github.com/dreamroad/dreamroad/internal/model"
	"github.com/dreamroad/dreamroad/internal/session"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn  func(ctx context.Context, req auth.LoginRequest) (*auth.LoginOutcome, error)
	logoutFn func(ctx context.Context, token string)

	loggedOutTokens []string
}

func (m *mockAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginOutcome, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, token string) {
	m.loggedOutTokens = append(m.loggedOutTokens, token)
	if m.logoutFn != nil {
		m.logoutFn(ctx, token)
	}
}

type mockBlocker struct {
	blocked map[string]bool
}

func (m *mockBlocker) IsBlocked(_ context.Context, s *model.Session) bool {
	return m.blocked[s.UserID]
}

// loginAs はロールごとにログイン成功を返すモックを生成する。
func loginAs() *mockAuthService {
	return &mockAuthService{
		loginFn: func(_ context.Context, req auth.LoginRequest) (*auth.LoginOutcome, error) {
			role, ok := model.ParseRole(req.Role)
			if !ok {
				return nil, model.NewInvalidRoleError(req.Role)
			}
			if req.Password != "pw" {
				return nil, model.NewInvalidCredentialsError()
			}
			return &auth.LoginOutcome{
				Session: &model.Session{Token: "t1", Role: role, UserID: "u1"},
				Profile: model.Profile{FullName: "Taro", ProfileComplete: true},
				Landing: access.LandingPathFor(role),
			}, nil
		},
	}
}

// testEnv はルーター全体を組み立てたテスト環境。
type testEnv struct {
	router  http.Handler
	store   *session.MemoryStore
	auth    *mockAuthService
	blocker *mockBlocker
	reg     *prometheus.Registry
	rl      *middleware.RateLimiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   session.NewMemoryStore(),
		auth:    loginAs(),
		blocker: &mockBlocker{blocked: map[string]bool{}},
		reg:     prometheus.NewRegistry(),
		rl: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			GeneralRate:     100,
			GeneralBurst:    100,
			LoginRate:       100,
			LoginBurst:      100,
			CleanupInterval: time.Minute,
		}),
	}
	t.Cleanup(env.rl.Stop)

	env.router = NewRouter(&RouterDeps{
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Table:          access.DefaultTable(),
		Store:          env.store,
		Blocker:        env.blocker,
		Cookie:         session.CookieConfig{},
		RateLimiter:    env.rl,
		AuthService:    env.auth,
		Metrics:        metrics.NewCollector(env.reg),
		MetricsHandler: metrics.Handler(env.reg),
	})
	return env
}

// browser はCookieを保持してリクエストを送るテスト用クライアント。
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (env *testEnv) newBrowser(t *testing.T) *browser {
	return &browser{t: t, env: env, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.env.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post はCSRFトークンを取得してからJSONをPOSTする。
func (b *browser) post(path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	if _, ok := b.cookies["csrf_token"]; !ok {
		b.get("/api/csrf-token")
	}

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", b.cookies["csrf_token"].Value)
	return b.do(req)
}

func (b *browser) login(role model.Role) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.post("/api/auth/login", map[string]string{
		"email":    "a@example.com",
		"password": "pw",
		"role":     role.String(),
	})
}

func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// assertNavigatesTo はクライアントガードの遷移ドキュメントを検証する。
func assertNavigatesTo(t *testing.T, w *httptest.ResponseRecorder, target string) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `http-equiv="refresh"`) || !strings.Contains(body, "url="+target+`"`) {
		t.Errorf("navigation to %s not found in body:\n%s", target, body)
	}
	if strings.Contains(body, `id="content"`) {
		t.Error("遷移時に本文を描画してはならない")
	}
}

// assertRendersContent はページ本文が描画されたことを検証する。
func assertRendersContent(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (Location=%q)", w.Code, w.Header().Get("Location"))
	}
	body := w.Body.String()
	if !strings.Contains(body, "<h1>") || strings.Contains(body, `http-equiv="refresh"`) {
		t.Errorf("page content not rendered:\n%s", body)
	}
}

// assertRedirect はHTTPリダイレクトを検証する。
func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// addSessionCookies はセッションのCookieをリクエストに付与する。
func addSessionCookies(req *http.Request, s *model.Session) {
	req.AddCookie(&http.Cookie{Name: model.KeyToken, Value: s.Token})
	req.AddCookie(&http.Cookie{Name: model.KeyRole, Value: s.Role.String()})
	req.AddCookie(&http.Cookie{Name: model.KeyUserID, Value: s.UserID})
}
