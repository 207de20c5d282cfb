// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizer はバックエンドから受け取った表示名をプレーンテキストに正規化する。
// 表示名はセッションストアに保存され、ページ描画時に再利用される。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxDisplayNameLength は表示名として保持する最大文字数（rune単位）。
const MaxDisplayNameLength = 100

// NameSanitizerService は表示名のサニタイズ機能のインターフェースを定義する。
type NameSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去したプレーンテキストを返す。
	// 前後の空白は取り除き、MaxDisplayNameLength を超える部分は切り詰める。
	Sanitize(name string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// タグを一切許可しない StrictPolicy を使用する。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は表示名をプレーンテキストに正規化する。
func (s *nameSanitizer) Sanitize(name string) string {
	// StrictPolicy は残ったテキストをエスケープして返すため、
	// 描画時の二重エスケープを避けてプレーンテキストに戻す
	cleaned := html.UnescapeString(s.policy.Sanitize(name))
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if utf8.RuneCountInString(cleaned) > MaxDisplayNameLength {
		runes := []rune(cleaned)
		cleaned = string(runes[:MaxDisplayNameLength])
	}
	return cleaned
}
