package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dreamroad/dreamroad/internal/model"
)

// --- モック定義 ---

type guardCall struct {
	point   string
	outcome string
}

type mockGuardRecorder struct {
	mu    sync.Mutex
	calls []guardCall
}

func (m *mockGuardRecorder) RecordGuardDecision(point, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, guardCall{point: point, outcome: outcome})
}

type mockHTTPRecorder struct {
	statuses  []int
	latencies []time.Duration
}

func (m *mockHTTPRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockHTTPRecorder) RecordRequestLatency(d time.Duration) {
	m.latencies = append(m.latencies, d)
}

type mockBlocker struct {
	isBlockedFn func(s *model.Session) bool
	calls       int
}

func (m *mockBlocker) IsBlocked(_ context.Context, s *model.Session) bool {
	m.calls++
	if m.isBlockedFn != nil {
		return m.isBlockedFn(s)
	}
	return false
}

// addSessionCookies はリクエストにセッションCookieを付与する。
func addSessionCookies(r *http.Request, token string, role model.Role, userID string) {
	r.AddCookie(&http.Cookie{Name: model.KeyToken, Value: token})
	r.AddCookie(&http.Cookie{Name: model.KeyRole, Value: role.String()})
	r.AddCookie(&http.Cookie{Name: model.KeyUserID, Value: userID})
}

// okHandler は呼び出し有無を記録して200を返すハンドラー。
func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}
