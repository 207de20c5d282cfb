// Command dreamroad はDreamRoadのページ認可ゲートウェイを起動する。
//
// サブコマンド:
//
//	serve        APIサーバー（デフォルト）
//	worker       client_storeのクリーンアップジョブ
//	migrate      データベースマイグレーション
//	healthcheck  /health への疎通確認（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/dreamroad/dreamroad/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dreamroad: %v\n", err)
		os.Exit(1)
	}
}
