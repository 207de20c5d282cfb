package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamroad/dreamroad/internal/model"
)

// DefaultCookieMaxAge はログイン時に設定するCookieの有効期間（7日）。
const DefaultCookieMaxAge = 7 * 24 * time.Hour

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
	Domain string
}

// CookieProvider はリクエストCookieからセッションを読み、レスポンスにSet-Cookieを書く。
// サーバーガードとエッジフィルタが使用する。
type CookieProvider struct {
	r      *http.Request
	w      http.ResponseWriter
	config CookieConfig
	now    func() time.Time
}

// NewCookieProvider はリクエスト単位のCookieProviderを生成する。
// 読み取り専用で使う場合、wはnilでよい。
func NewCookieProvider(r *http.Request, w http.ResponseWriter, config CookieConfig) *CookieProvider {
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultCookieMaxAge
	}
	return &CookieProvider{r: r, w: w, config: config, now: time.Now}
}

// FromRequest はリクエストCookieからセッションを読み取る。
// token、role、userIdのいずれかが欠けていればnilを返す。
func FromRequest(r *http.Request) *model.Session {
	return fromValues(cookieValue(r, model.KeyToken), cookieValue(r, model.KeyRole), cookieValue(r, model.KeyUserID))
}

// Read はリクエストCookieからセッションを返す。
func (p *CookieProvider) Read(ctx context.Context) (*model.Session, error) {
	return FromRequest(p.r), nil
}

// Write はtoken、role、userIdのCookieを有効期限付きで設定する。
// プロフィール情報はCookieには載せない。
func (p *CookieProvider) Write(ctx context.Context, s *model.Session, _ model.Profile) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to write incomplete session")
	}
	if p.w == nil {
		return fmt.Errorf("cookie provider is read-only")
	}

	expires := p.now().Add(p.config.MaxAge)
	maxAge := int(p.config.MaxAge / time.Second)

	p.set(model.KeyToken, s.Token, expires, maxAge, true)
	p.set(model.KeyRole, string(s.Role), expires, maxAge, false)
	p.set(model.KeyUserID, s.UserID, expires, maxAge, false)
	return nil
}

// Clear は既に過ぎた有効期限でCookieを上書きして削除する。
func (p *CookieProvider) Clear(ctx context.Context) error {
	if p.w == nil {
		return fmt.Errorf("cookie provider is read-only")
	}

	expired := time.Unix(0, 0)
	p.set(model.KeyToken, "", expired, -1, true)
	p.set(model.KeyRole, "", expired, -1, false)
	p.set(model.KeyUserID, "", expired, -1, false)
	return nil
}

func (p *CookieProvider) set(name, value string, expires time.Time, maxAge int, httpOnly bool) {
	http.SetCookie(p.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.config.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   p.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// compile-time interface check
var _ Provider = (*CookieProvider)(nil)
