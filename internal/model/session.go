package model

// 永続化キーバリューストアおよびCookieで使用するキー名。
// フロントエンドと共有するため名前は変更しないこと。
const (
	KeyToken      = "token"
	KeyRole       = "role"
	KeyUserID     = "userId"
	KeyFullName   = "fullname"
	KeyIsLoggedIn = "isLoggedIn"
	KeyProfile    = "profile"
	KeyExpiresAt  = "expiresAt"
)

// StoreKeys は永続化ストアが保持する全キーを返す。
// expiresAtはサーバー側でのみ使用し、Cookieには載せない。
func StoreKeys() []string {
	return []string{KeyToken, KeyRole, KeyUserID, KeyFullName, KeyIsLoggedIn, KeyProfile, KeyExpiresAt}
}

// Session はログイン時にキャッシュされる認証済みアイデンティティ。
// Tokenが存在する場合、RoleとUserIDも同一ログインで設定された値でなければならない。
type Session struct {
	Token  string
	Role   Role
	UserID string
}

// Valid は3つの必須値がすべて揃い、ロールが既知であるかを判定する。
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	return s.Token != "" && s.UserID != "" && s.Role.Valid()
}

// Profile はログイン時にセッションと一緒に保存される表示用情報。
type Profile struct {
	FullName        string
	ProfileComplete bool
}
