// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/auth"
	"github.com/dreamroad/dreamroad/internal/middleware"
	"github.com/dreamroad/dreamroad/internal/model"
	"github.com/dreamroad/dreamroad/internal/session"
)

// maxLoginBodyBytes はログインリクエストボディの上限。
const maxLoginBodyBytes = 64 << 10

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginOutcome, error)
	Logout(ctx context.Context, token string)
}

// LoginRecorder はログイン結果を記録するインターフェース。
type LoginRecorder interface {
	RecordLogin(result string)
}

// AuthHandler はログイン・ログアウト・セッション参照のHTTPハンドラー。
// セッションはCookieと永続化ストアの両方に書き込む。
type AuthHandler struct {
	service  AuthServiceInterface
	store    session.Store
	cookie   session.CookieConfig
	recorder LoginRecorder
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, store session.Store, cookie session.CookieConfig, recorder LoginRecorder) *AuthHandler {
	return &AuthHandler{
		service:  service,
		store:    store,
		cookie:   cookie,
		recorder: recorder,
	}
}

type loginRequestBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponseBody struct {
	Redirect string `json:"redirect"`
	Role     string `json:"role"`
	UserID   string `json:"userId"`
}

type sessionResponseBody struct {
	Role            string `json:"role"`
	UserID          string `json:"userId"`
	FullName        string `json:"fullname"`
	IsLoggedIn      bool   `json:"isLoggedIn"`
	ProfileComplete bool   `json:"profile"`
	Landing         string `json:"landing"`
}

// Login は認証情報を検証し、両方のストレージにセッションを書き込む。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&body); err != nil {
		apiErr := model.NewInvalidRequestError("JSONの形式が不正です")
		h.record(apiErr)
		handleServiceError(w, apiErr)
		return
	}

	out, err := h.service.Login(r.Context(), auth.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
		Role:     body.Role,
	})
	h.record(err)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	providers := h.providers(w, r)
	for _, p := range providers {
		if err := p.Write(r.Context(), out.Session, out.Profile); err != nil {
			slog.Error("failed to write session",
				slog.String("user_id", out.Session.UserID),
				slog.String("error", err.Error()),
			)
			// 片方だけにセッションが残らないよう両方を破棄する
			for _, q := range providers {
				_ = q.Clear(r.Context())
			}
			middleware.WriteInternalServerError(w)
			return
		}
	}

	middleware.WriteJSON(w, http.StatusOK, loginResponseBody{
		Redirect: out.Landing,
		Role:     out.Session.Role.String(),
		UserID:   out.Session.UserID,
	})
}

// Logout はバックエンドへ失効を通知し、両方のストレージからセッションを破棄する。
// 通知の成否に関わらずローカルのセッションは必ず破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	providers := h.providers(w, r)

	token := ""
	for _, p := range providers {
		if s, err := p.Read(r.Context()); err == nil && s != nil {
			token = s.Token
			break
		}
	}
	h.service.Logout(r.Context(), token)

	for _, p := range providers {
		if err := p.Clear(r.Context()); err != nil {
			slog.Error("failed to clear session", slog.String("error", err.Error()))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session はCookieのセッションと表示用プロフィールを返す。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := session.FromRequest(r)
	if s == nil {
		handleServiceError(w, model.NewUnauthorizedError())
		return
	}

	body := sessionResponseBody{
		Role:       s.Role.String(),
		UserID:     s.UserID,
		IsLoggedIn: true,
		Landing:    access.LandingPathFor(s.Role),
	}
	if sp := h.storeProvider(r); sp != nil {
		if prof, err := sp.Profile(r.Context()); err == nil {
			body.FullName = prof.FullName
			body.ProfileComplete = prof.ProfileComplete
		}
	}

	middleware.WriteJSON(w, http.StatusOK, body)
}

func (h *AuthHandler) record(err error) {
	if h.recorder != nil {
		h.recorder.RecordLogin(loginResultLabel(err))
	}
}

// providers はリクエストに対応するCookieと永続化ストアのProviderを返す。
func (h *AuthHandler) providers(w http.ResponseWriter, r *http.Request) []session.Provider {
	providers := []session.Provider{session.NewCookieProvider(r, w, h.cookie)}
	if sp := h.storeProvider(r); sp != nil {
		providers = append(providers, sp)
	}
	return providers
}

func (h *AuthHandler) storeProvider(r *http.Request) *session.StoreProvider {
	if h.store == nil {
		return nil
	}
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		return nil
	}
	return session.NewStoreProvider(h.store, clientID).WithMaxAge(h.cookie.MaxAge)
}
