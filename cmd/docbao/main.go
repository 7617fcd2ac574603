// Command docbao はVnExpressニュースリーダーのAPIサーバーとワーカーを起動する。
//
//	docbao [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/docbao/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "docbao: %v\n", err)
		os.Exit(1)
	}
}
