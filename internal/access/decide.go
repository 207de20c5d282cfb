// Package access はロールベースのルート認可判定を提供する。
//
// クライアントガード、サーバーガード、エッジフィルタの3箇所はすべて
// Decide と同じルートテーブルを共有し、セッションの取得方法と
// リダイレクトの実行方法だけが異なる。
package access

import "github.com/dreamroad/dreamroad/internal/model"

// リダイレクト先のパス。
const (
	PathLogin             = "/login"
	PathHome              = "/"
	PathAdminDashboard    = "/admin/dashboard"
	PathEmployerDashboard = "/employer/dashboard"
)

// LandingPathFor はロールごとのランディングパスを返す。
// 未知のロールや空文字はログインページに倒す。
func LandingPathFor(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return PathAdminDashboard
	case model.RoleCompany:
		return PathEmployerDashboard
	case model.RoleUser:
		return PathHome
	default:
		return PathLogin
	}
}

// Decision はガード評価の結果。許可かリダイレクトのいずれかしかない。
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Allow は許可を表すDecisionを返す。
func Allow() Decision {
	return Decision{Allow: true}
}

// RedirectTo は指定パスへのリダイレクトを表すDecisionを返す。
func RedirectTo(path string) Decision {
	return Decision{RedirectTo: path}
}

// Outcome はメトリクスやログ用の結果ラベルを返す。
func (d Decision) Outcome() string {
	if d.Allow {
		return "allow"
	}
	return "redirect"
}

// Decide はセッションと許可ロールから表示可否を決定する。
//
//   - セッションなし: requireAuth ならログインへ、そうでなければ匿名として許可
//   - ロールが許可リストに含まれる: 許可
//   - それ以外: そのロールのランディングパスへ
//
// 不完全なセッションは呼び出し側でnilとして渡すこと。
func Decide(s *model.Session, allowed []model.Role, requireAuth bool) Decision {
	if s == nil {
		if requireAuth {
			return RedirectTo(PathLogin)
		}
		return Allow()
	}

	for _, r := range allowed {
		if r == s.Role {
			return Allow()
		}
	}

	return RedirectTo(LandingPathFor(s.Role))
}
