package access

import (
	"context"

	"github.com/dreamroad/dreamroad/internal/model"
)

// GuardState はクライアントガードの状態。
type GuardState int

const (
	// StateChecking はセッション未読み込みの初期状態。
	StateChecking GuardState = iota
	// StateAuthorized は表示が許可された終端状態。
	StateAuthorized
	// StateRedirecting はナビゲーションを起こす終端状態。
	StateRedirecting
)

// String はfmt.Stringerを実装する。
func (s GuardState) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// View はガードの状態に応じて描画すべきものを表す。
type View int

const (
	// ViewPlaceholder は読み込み中のプレースホルダー。
	ViewPlaceholder View = iota
	// ViewContent は保護されたコンテンツ。
	ViewContent
	// ViewNothing は何も描画しない（ナビゲーション中）。
	ViewNothing
)

// SessionReader はクライアントガードがセッションを読むためのインターフェース。
// session.Provider の部分集合として定義する。
type SessionReader interface {
	Read(ctx context.Context) (*model.Session, error)
}

// ClientGuard はページマウント後に評価されるガード。
// 状態遷移はマウントごとに1回だけ起きる。
type ClientGuard struct {
	rule    Rule
	state   GuardState
	target  string
	session *model.Session
}

// NewClientGuard はchecking状態のClientGuardを生成する。
func NewClientGuard(rule Rule) *ClientGuard {
	return &ClientGuard{rule: rule, state: StateChecking}
}

// Mount はセッションを読み込み、authorizedかredirectingへ遷移する。
// 既に遷移済みの場合は何もしない。読み込みエラーは未認証として扱い、再試行しない。
func (g *ClientGuard) Mount(ctx context.Context, reader SessionReader) GuardState {
	if g.state != StateChecking {
		return g.state
	}

	s, err := reader.Read(ctx)
	if err != nil || !s.Valid() {
		s = nil
	}

	d := g.rule.Evaluate(s)
	if d.Allow {
		g.state = StateAuthorized
		g.session = s
	} else {
		g.state = StateRedirecting
		g.target = d.RedirectTo
	}
	return g.state
}

// State は現在の状態を返す。
func (g *ClientGuard) State() GuardState {
	return g.state
}

// View は現在の状態で描画すべきものを返す。
func (g *ClientGuard) View() View {
	switch g.state {
	case StateAuthorized:
		return ViewContent
	case StateRedirecting:
		return ViewNothing
	default:
		return ViewPlaceholder
	}
}

// Target はredirecting状態のナビゲーション先を返す。
func (g *ClientGuard) Target() string {
	return g.target
}

// Session はauthorized状態で読み込まれたセッションを返す。匿名閲覧の場合はnil。
func (g *ClientGuard) Session() *model.Session {
	return g.session
}
