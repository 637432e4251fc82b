package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azee177/jianli/internal/cli"
	"github.com/Azee177/jianli/internal/shared/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, config.Load()); err != nil {
		stop()
		os.Exit(1)
	}
}
