package access

import (
	"fmt"
	"strings"

	"github.com/dreamroad/dreamroad/internal/model"
)

// GuardMode はページ単位のガードがどこで評価されるかを表す。
type GuardMode string

const (
	// GuardServer はレスポンス生成前にCookieで評価する。
	GuardServer GuardMode = "server"
	// GuardClient はマウント後に永続化ストアで評価する。
	GuardClient GuardMode = "client"
)

// Rule はページグループ単位の認可ルール。
// Patterns は完全一致のパスか、"prefix/*"（prefix自身と配下すべて）で指定する。
type Rule struct {
	Group    string
	Title    string
	Patterns []string
	Allowed  []model.Role
	Public   bool // 匿名閲覧を許可する（optional認証）
	Mode     GuardMode
}

// Matches はパスがルールのいずれかのパターンに一致するかを判定する。
func (r Rule) Matches(path string) bool {
	for _, p := range r.Patterns {
		if matchPattern(p, path) {
			return true
		}
	}
	return false
}

// Evaluate はページガードとしてルールを評価する。
func (r Rule) Evaluate(s *model.Session) Decision {
	return Decide(s, r.Allowed, !r.Public)
}

// Allows はロールが許可リストに含まれるかを判定する。
func (r Rule) Allows(role model.Role) bool {
	for _, a := range r.Allowed {
		if a == role {
			return true
		}
	}
	return false
}

// Table はルートの許可リスト。先に一致したルールが優先される。
type Table []Rule

// Lookup はパスに一致する最初のルールを返す。
func (t Table) Lookup(path string) (Rule, bool) {
	for _, r := range t {
		if r.Matches(path) {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate はテーブルの整合性を検証する。
// 各ロールのランディングパスがそのロールを許可していないと、
// 誤ったロールの利用者がリダイレクトループに入るためエラーとする。
func (t Table) Validate() error {
	for _, r := range t {
		if len(r.Patterns) == 0 {
			return fmt.Errorf("rule %q has no patterns", r.Group)
		}
		for _, role := range r.Allowed {
			if !role.Valid() {
				return fmt.Errorf("rule %q allows unknown role %q", r.Group, role)
			}
		}
	}

	for _, role := range model.Roles() {
		landing := LandingPathFor(role)
		rule, ok := t.Lookup(landing)
		if !ok {
			return fmt.Errorf("landing path %s for role %s has no rule", landing, role)
		}
		if !rule.Allows(role) {
			return fmt.Errorf("landing path %s does not allow role %s", landing, role)
		}
	}

	if rule, ok := t.Lookup(PathLogin); !ok || !rule.Public {
		return fmt.Errorf("login path %s must be public", PathLogin)
	}

	return nil
}

// DefaultTable はDreamRoadのページグループ定義を返す。
func DefaultTable() Table {
	return Table{
		{
			Group:    "guest",
			Title:    "ログイン",
			Patterns: []string{"/login", "/register", "/forgot-password"},
			Public:   true,
			Mode:     GuardClient,
		},
		{
			Group:    "home",
			Title:    "DreamRoad",
			Patterns: []string{"/"},
			Allowed:  []model.Role{model.RoleUser},
			Public:   true,
			Mode:     GuardClient,
		},
		{
			Group:    "jobs",
			Title:    "求人一覧",
			Patterns: []string{"/jobs", "/jobs/*"},
			Allowed:  []model.Role{model.RoleUser},
			Public:   true,
			Mode:     GuardClient,
		},
		{
			Group:    "companies",
			Title:    "企業一覧",
			Patterns: []string{"/companies", "/companies/*"},
			Allowed:  []model.Role{model.RoleUser},
			Public:   true,
			Mode:     GuardClient,
		},
		{
			Group:    "seeker",
			Title:    "マイページ",
			Patterns: []string{"/profile", "/profile/*", "/applied-jobs", "/saved-jobs"},
			Allowed:  []model.Role{model.RoleUser},
			Mode:     GuardClient,
		},
		{
			Group:    "employer",
			Title:    "企業ダッシュボード",
			Patterns: []string{"/employer", "/employer/*"},
			Allowed:  []model.Role{model.RoleCompany},
			Mode:     GuardServer,
		},
		{
			Group:    "admin",
			Title:    "管理ダッシュボード",
			Patterns: []string{"/admin", "/admin/*"},
			Allowed:  []model.Role{model.RoleAdmin},
			Mode:     GuardServer,
		},
	}
}

// matchPattern はパターンとパスを照合する。
// "/jobs/*" は "/jobs" と "/jobs/..." に一致するが "/jobsearch" には一致しない。
func matchPattern(pattern, path string) bool {
	if base, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == base || strings.HasPrefix(path, base+"/")
	}
	return path == pattern
}
