package access

import (
	"context"

	"github.com/dreamroad/dreamroad/internal/model"
)

// BlockChecker はアカウントの利用停止状態を確認するインターフェース。
//
// 認証判定はデータ欠損時に拒否（fail-closed）するが、利用停止判定は
// バックエンド障害時に「停止されていない」として扱う（fail-open）。
// この非対称は意図的に残しており、実装側で統一しないこと。
type BlockChecker interface {
	IsBlocked(ctx context.Context, s *model.Session) bool
}
