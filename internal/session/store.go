package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dreamroad/dreamroad/internal/model"
)

// StoreProvider は永続化ストア上の1クライアント分のセッションを扱う。
// クライアントガードが使用する。同じclientIDのStoreProviderが複数あれば、
// 同じストレージを共有するブラウザタブに相当する。
//
// セッションはCookieと同じ有効期間で書き込まれ、期限を過ぎたものは読み取り時に無視される。
type StoreProvider struct {
	store    Store
	clientID string
	maxAge   time.Duration
	now      func() time.Time
}

// NewStoreProvider はStoreProviderを生成する。有効期間はDefaultCookieMaxAge。
func NewStoreProvider(store Store, clientID string) *StoreProvider {
	return &StoreProvider{store: store, clientID: clientID, maxAge: DefaultCookieMaxAge, now: time.Now}
}

// WithMaxAge はセッションの有効期間を設定する。Cookieの有効期間と揃えること。
// 0以下の場合はDefaultCookieMaxAgeのまま。
func (p *StoreProvider) WithMaxAge(d time.Duration) *StoreProvider {
	if d > 0 {
		p.maxAge = d
	}
	return p
}

// Read は永続化ストアからセッションを返す。clientIDが空の場合、
// または有効期限が無い・過ぎている場合はnil。
func (p *StoreProvider) Read(ctx context.Context) (*model.Session, error) {
	if p.clientID == "" {
		return nil, nil
	}
	values, err := p.store.Get(ctx, p.clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to read client store: %w", err)
	}
	if p.expired(values[model.KeyExpiresAt]) {
		return nil, nil
	}
	return fromValues(values[model.KeyToken], values[model.KeyRole], values[model.KeyUserID]), nil
}

// expired はexpiresAt（Unix秒）が現在時刻以前かを判定する。解析できない値は期限切れとみなす。
func (p *StoreProvider) expired(v string) bool {
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return true
	}
	return !p.now().Before(time.Unix(sec, 0))
}

// Profile は永続化ストアに保存されたプロフィール情報を返す。
func (p *StoreProvider) Profile(ctx context.Context) (model.Profile, error) {
	if p.clientID == "" {
		return model.Profile{}, nil
	}
	values, err := p.store.Get(ctx, p.clientID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to read client store: %w", err)
	}
	complete, _ := strconv.ParseBool(values[model.KeyProfile])
	return model.Profile{
		FullName:        values[model.KeyFullName],
		ProfileComplete: complete,
	}, nil
}

// Write はセッションのキーと有効期限を1回の書き込みで保存する。
func (p *StoreProvider) Write(ctx context.Context, s *model.Session, prof model.Profile) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to write incomplete session")
	}
	if p.clientID == "" {
		return fmt.Errorf("client ID is required")
	}

	values := map[string]string{
		model.KeyToken:      s.Token,
		model.KeyRole:       string(s.Role),
		model.KeyUserID:     s.UserID,
		model.KeyFullName:   prof.FullName,
		model.KeyIsLoggedIn: strconv.FormatBool(true),
		model.KeyProfile:    strconv.FormatBool(prof.ProfileComplete),
		model.KeyExpiresAt:  strconv.FormatInt(p.now().Add(p.maxAge).Unix(), 10),
	}
	if err := p.store.Put(ctx, p.clientID, values); err != nil {
		return fmt.Errorf("failed to write client store: %w", err)
	}
	return nil
}

// Clear はセッション関連の全キーを削除する。
func (p *StoreProvider) Clear(ctx context.Context) error {
	if p.clientID == "" {
		return nil
	}
	if err := p.store.Delete(ctx, p.clientID, model.StoreKeys()...); err != nil {
		return fmt.Errorf("failed to clear client store: %w", err)
	}
	return nil
}

// CookieBoundReader は永続化ストアのセッションを、リクエストCookieのセッションと
// 一致する場合に限り返す。Cookieが失効・削除された後に残ったストア側のセッションは
// 読み取り時に破棄し、未認証として扱う。
type CookieBoundReader struct {
	Store  *StoreProvider
	Cookie *model.Session
}

// Read はCookieと一致するストア側のセッションを返す。
func (r CookieBoundReader) Read(ctx context.Context) (*model.Session, error) {
	s, err := r.Store.Read(ctx)
	if err != nil || s == nil {
		return s, err
	}
	if r.Cookie != nil && *r.Cookie == *s {
		return s, nil
	}
	if err := r.Store.Clear(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// compile-time interface check
var _ Provider = (*StoreProvider)(nil)
