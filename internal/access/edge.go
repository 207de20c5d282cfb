package access

import (
	"strings"

	"github.com/dreamroad/dreamroad/internal/model"
)

// DefaultSkipPrefixes はエッジフィルタが評価しないパスの接頭辞。
// 静的アセットとAPIは他のハンドラーが扱う。
var DefaultSkipPrefixes = []string{
	"/static/",
	"/assets/",
	"/_next/",
	"/api/",
	"/favicon.ico",
	"/robots.txt",
	"/health",
	"/metrics",
}

// EdgeFilter はページ読み込み前にリクエストパスを粗く判定する。
// ページ単位のガードと同じテーブルを参照するが、公開パスはロールに関係なく通す。
type EdgeFilter struct {
	Table        Table
	SkipPrefixes []string
}

// NewEdgeFilter はデフォルトのスキップ接頭辞でEdgeFilterを生成する。
func NewEdgeFilter(table Table) *EdgeFilter {
	return &EdgeFilter{
		Table:        table,
		SkipPrefixes: DefaultSkipPrefixes,
	}
}

// Skip はパスが評価対象外かどうかを判定する。
func (f *EdgeFilter) Skip(path string) bool {
	for _, p := range f.SkipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Evaluate はリクエストパスとCookieのセッションから判定を返す。
// skippedがtrueの場合、Decisionは常に許可となる。
func (f *EdgeFilter) Evaluate(path string, s *model.Session) (d Decision, skipped bool) {
	if f.Skip(path) {
		return Allow(), true
	}

	rule, ok := f.Table.Lookup(path)
	if !ok || rule.Public {
		return Allow(), false
	}

	return Decide(s, rule.Allowed, true), false
}
