// Package auth はバックエンドAPIを用いたログイン・ログアウトフローを提供する。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dreamroad/dreamroad/internal/access"
	"github.com/dreamroad/dreamroad/internal/backend"
	"github.com/dreamroad/dreamroad/internal/model"
)

// Authenticator はバックエンドの認証APIのインターフェース。
// テスト時にモックに差し替え可能。
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Sanitizer は表示名の正規化を行うインターフェース。
type Sanitizer interface {
	Sanitize(name string) string
}

// LoginRequest はログインフォームの入力値。
type LoginRequest struct {
	Email    string
	Password string
	Role     string
}

// LoginOutcome はログイン成功時にセッションへ書き込む内容と遷移先。
type LoginOutcome struct {
	Session *model.Session
	Profile model.Profile
	Landing string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	backend   Authenticator
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(authenticator Authenticator, sanitizer Sanitizer, logger *slog.Logger) *Service {
	return &Service{
		backend:   authenticator,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Login は認証情報を検証し、書き込むべきセッションを返す。
// 返却されるエラーはすべて *model.APIError である。
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginOutcome, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, model.NewInvalidRequestError("メールアドレスとパスワードは必須です")
	}

	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, model.NewInvalidRoleError(req.Role)
	}

	result, err := s.backend.Login(ctx, backend.Credentials{
		Email:    email,
		Password: req.Password,
		Role:     role.String(),
	})
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			s.logger.Info("login rejected", slog.String("role", role.String()))
			return nil, model.NewInvalidCredentialsError()
		}
		s.logger.Error("login backend call failed",
			slog.String("role", role.String()),
			slog.String("error", err.Error()),
		)
		return nil, model.NewBackendUnavailableError()
	}

	// バックエンドの応答が要求ロールと食い違う、または必須値が欠けている場合は
	// 部分的なセッションを作らずに拒否する
	session := &model.Session{
		Token:  result.Token,
		Role:   model.Role(result.Role),
		UserID: result.UserID,
	}
	if !session.Valid() || session.Role != role {
		s.logger.Warn("backend returned an incomplete login result",
			slog.String("requested_role", role.String()),
			slog.String("returned_role", result.Role),
			slog.Bool("has_token", result.Token != ""),
			slog.Bool("has_user_id", result.UserID != ""),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	s.logger.Info("user logged in",
		slog.String("user_id", session.UserID),
		slog.String("role", session.Role.String()),
	)

	return &LoginOutcome{
		Session: session,
		Profile: model.Profile{
			FullName:        s.sanitizer.Sanitize(result.FullName),
			ProfileComplete: result.ProfileComplete,
		},
		Landing: access.LandingPathFor(session.Role),
	}, nil
}

// Logout はバックエンドにトークン失効を通知する。
// 通知の失敗はログに残すだけで、ローカルのセッション破棄は呼び出し元が必ず行う。
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.backend.Logout(ctx, token); err != nil {
		s.logger.Warn("backend logout failed",
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("user logged out")
}
