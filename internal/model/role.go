// Package model はドメインモデルを定義する。
package model

// Role はDreamRoadのユーザー種別を表す。
// アカウント作成時に1つだけ割り当てられ、互いに排他的である。
type Role string

const (
	// RoleUser は求職者。
	RoleUser Role = "user"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
	// RoleCompany は求人企業（employer）。
	RoleCompany Role = "company"
)

// Roles は既知のロールをすべて返す。
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleCompany}
}

// ParseRole は文字列をRoleに変換する。
// 既知のロールでない場合はfalseを返す。
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Valid は既知のロールかどうかを判定する。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleCompany:
		return true
	default:
		return false
	}
}

// String はfmt.Stringerを実装する。
func (r Role) String() string {
	return string(r)
}
