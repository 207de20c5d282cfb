package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	// ClientIDCookieName はブラウザ単位の永続化ストアを識別するCookie名。
	ClientIDCookieName = "dr_client"

	clientIDMaxAge = 365 * 24 * 60 * 60
)

// ClientIDConfig はクライアントID Cookieの属性。
type ClientIDConfig struct {
	CookieSecure bool
	CookieDomain string
}

// NewClientIDMiddleware はクライアントIDをコンテキストに注入するミドルウェアを返す。
// Cookieが無い、またはUUIDとして不正な場合は新しいIDを発行する。
// 同じブラウザの複数タブは同じIDを共有する。
func NewClientIDMiddleware(config ClientIDConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ""
			if c, err := r.Cookie(ClientIDCookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					clientID = id.String()
				}
			}

			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientIDCookieName,
					Value:    clientID,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   clientIDMaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClientID(r.Context(), clientID)))
		})
	}
}
