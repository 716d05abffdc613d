package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/fbscrape/internal/cli"
)

func main() {
	// Ctrl-C cancels the running scrape; the posts gathered so far are kept
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
