package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bountycatch/cmd/bountycatch/commands"
)

func main() {
	// Load .env if present; real environment variables take precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()

	if err != nil {
		commands.ReportError(os.Stderr, err)
	}
	os.Exit(commands.ExitCode(err))
}
