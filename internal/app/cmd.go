package app

import (
	"fmt"
	"io"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は記事キャッシュの定期更新とクリーンアップを実行する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを適用する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はローカルの/healthを確認する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

var commandHelp = []struct {
	cmd  Command
	desc string
}{
	{CommandServe, "APIサーバーを起動する（既定）"},
	{CommandWorker, "記事キャッシュの定期更新と期限切れデータの削除を行う"},
	{CommandMigrate, "未適用のマイグレーションを適用する"},
	{CommandHealthcheck, "ローカルのAPIサーバーの/healthを確認する"},
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServe、未知のサブコマンドはエラーを返す。
// 2番目以降の引数は無視する。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	for _, h := range commandHelp {
		if string(h.cmd) == args[0] {
			return h.cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", args[0])
}

// Usage はサブコマンドの一覧を出力する。
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: docbao [command]")
	fmt.Fprintln(w)
	for _, h := range commandHelp {
		fmt.Fprintf(w, "  %-12s %s\n", h.cmd, h.desc)
	}
}
