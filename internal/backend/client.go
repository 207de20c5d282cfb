// Package backend はDreamRoadバックエンドAPIのクライアントを提供する。
// ログイン・ログアウトとアカウント状態の取得のみを扱う。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dreamroad/dreamroad/internal/model"
)

// maxResponseBytes はレスポンスボディの読み取り上限。
const maxResponseBytes = 1 << 20

var (
	// ErrInvalidCredentials は認証情報が拒否されたことを示す。
	ErrInvalidCredentials = errors.New("backend: invalid credentials")
	// ErrUnavailable はバックエンドが応答しない、または想定外のステータスを返したことを示す。
	ErrUnavailable = errors.New("backend: unavailable")
)

// Credentials はログイン要求の内容。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResult はログイン成功時にバックエンドが返す内容。
type LoginResult struct {
	Token           string `json:"token"`
	Role            string `json:"role"`
	UserID          string `json:"userId"`
	FullName        string `json:"fullname"`
	ProfileComplete bool   `json:"profile"`
}

// AccountStatus はアカウントの利用状態。
type AccountStatus struct {
	Blocked bool `json:"isBlocked"`
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLの末尾スラッシュは取り除く。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Login は認証情報をバックエンドに送信する。
// 401/403 は ErrInvalidCredentials、その他の失敗は ErrUnavailable でラップして返す。
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("ログイン要求のエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result LoginResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout はトークンを失効させる。
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, nil)
}

// AccountStatus はロールに応じたエンドポイントからアカウント状態を取得する。
// 管理者アカウントには状態エンドポイントが存在しないためエラーを返す。
func (c *Client) AccountStatus(ctx context.Context, role model.Role, userID string) (*AccountStatus, error) {
	var collection string
	switch role {
	case model.RoleUser:
		collection = "users"
	case model.RoleCompany:
		collection = "companies"
	default:
		return nil, fmt.Errorf("ロール %q のアカウント状態は取得できません", role)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/status", c.baseURL, collection, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	var status AccountStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// do はリクエストを実行し、2xxの場合のみoutにJSONをデコードする。
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "DreamRoad/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("バックエンドAPIがエラーステータスを返しました",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: レスポンスボディの読み取りに失敗しました: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("バックエンドAPIのレスポンスのパースに失敗しました",
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: レスポンスJSONのパースに失敗しました: %v", ErrUnavailable, err)
	}
	return nil
}
