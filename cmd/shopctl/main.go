// Command shopctl is a command-line client for the sweet-shop API.
//
//	shopctl items --search pie
//	SHOP_EMAIL=amy@example.com SHOP_PASSWORD=... shopctl cart add cherry --qty 2
//	shopctl buy
//
// Credentials come from --email/--password or SHOP_EMAIL/SHOP_PASSWORD.
// Every invocation signs in afresh; the token is never saved.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
