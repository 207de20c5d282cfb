// Package session はセッション情報の読み書きを抽象化する。
//
// セッションはCookieと永続化キーバリューストアの2箇所に重複して保持される。
// どちらも Provider として扱い、ガードは取得元を意識しない。
package session

import (
	"context"

	"github.com/dreamroad/dreamroad/internal/model"
)

// Provider はセッションの取得・保存・破棄を行うインターフェース。
type Provider interface {
	// Read はセッションを返す。必須キーが1つでも欠けている、
	// またはロールが未知の場合はnilを返す（fail-closed）。
	Read(ctx context.Context) (*model.Session, error)

	// Write はセッションとプロフィール情報を保存する。同じ値の再書き込みは実質的に何もしない。
	Write(ctx context.Context, s *model.Session, p model.Profile) error

	// Clear はセッションを破棄する。空の状態での呼び出しも成功する。
	Clear(ctx context.Context) error
}

// Store は永続化キーバリューストアのインターフェース。
// クライアント（ブラウザ）ごとのキー集合を保持する。
type Store interface {
	// Get はクライアントの全キーを返す。存在しない場合は空のマップを返す。
	Get(ctx context.Context, clientID string) (map[string]string, error)

	// Put は複数キーを1回の書き込みで原子的に保存する。
	Put(ctx context.Context, clientID string, values map[string]string) error

	// Delete は指定キーを削除する。存在しないキーは無視する。
	Delete(ctx context.Context, clientID string, keys ...string) error
}

// fromValues はキー集合からセッションを組み立てる。
// token、role、userIdのいずれかが欠けている場合はnilを返す。
func fromValues(token, role, userID string) *model.Session {
	if token == "" || userID == "" {
		return nil
	}
	r, ok := model.ParseRole(role)
	if !ok {
		return nil
	}
	return &model.Session{Token: token, Role: r, UserID: userID}
}
