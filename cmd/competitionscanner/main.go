// competitionscanner collects AI competitions from public listing sites into
// a shared table.
//
// Usage:
//
//	competitionscanner [--platform=baidu|aliyun|tencent|wechat|all|update-status] [--config=<path>]
//	competitionscanner check --title=<title> [--platform=<name>] [--link=<url>] [--description=<text>]
//	competitionscanner schedule
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted:", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
