package app

// Command は dreamroad バイナリのサブコマンド。
type Command string

const (
	// CommandServe はエッジフィルタとガード付きのWebサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は永続化ストアのクリーンアップを定期実行する。
	CommandWorker Command = "worker"
	// CommandMigrate はclient_storeのスキーマを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの /health を確認して終了する。
	// シェルの無いdistrolessイメージのHEALTHCHECKで使う。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は最初の引数をサブコマンドとして解釈する。
// 引数が無い場合や未知の値の場合は serve とする。2つ目以降の引数は見ない。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
