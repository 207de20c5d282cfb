// Package user はアカウント状態に関するドメインロジックを提供する。
package user

import (
	"context"
	"log/slog"

	"github.com/dreamroad/dreamroad/internal/backend"
	"github.com/dreamroad/dreamroad/internal/model"
)

// StatusFetcher はアカウント状態取得のインターフェース。
type StatusFetcher interface {
	AccountStatus(ctx context.Context, role model.Role, userID string) (*backend.AccountStatus, error)
}

// FailureRecorder は利用停止確認の失敗を記録するインターフェース。
type FailureRecorder interface {
	RecordBlockCheckFailure()
}

// StatusService はアカウントの利用停止状態を判定する。
// access.BlockChecker を満たす。
type StatusService struct {
	fetcher  StatusFetcher
	recorder FailureRecorder
}

// NewStatusService はStatusServiceの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewStatusService(fetcher StatusFetcher, recorder FailureRecorder) *StatusService {
	return &StatusService{
		fetcher:  fetcher,
		recorder: recorder,
	}
}

// IsBlocked はセッションのアカウントが利用停止されているかを返す。
// 管理者は常に停止されていない扱い。確認に失敗した場合も停止されていない扱いにする。
func (s *StatusService) IsBlocked(ctx context.Context, session *model.Session) bool {
	if !session.Valid() || session.Role == model.RoleAdmin {
		return false
	}

	status, err := s.fetcher.AccountStatus(ctx, session.Role, session.UserID)
	if err != nil {
		slog.Warn("アカウント状態の確認に失敗したため許可として扱います",
			slog.String("user_id", session.UserID),
			slog.String("role", session.Role.String()),
			slog.String("error", err.Error()),
		)
		if s.recorder != nil {
			s.recorder.RecordBlockCheckFailure()
		}
		return false
	}

	if status.Blocked {
		slog.Info("利用停止中のアカウントを検出しました",
			slog.String("user_id", session.UserID),
			slog.String("role", session.Role.String()),
		)
	}
	return status.Blocked
}
