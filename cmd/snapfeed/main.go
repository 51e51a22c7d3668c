package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/snapfeed"
)

func main() {
	ctx := context.Background()

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.ErrorContext(ctx, "failed to load .env file", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(snapfeed.NewLogger())

	app, err := snapfeed.NewApp(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create app", "error", err)
		os.Exit(1)
	}

	err = app.Run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run app", "error", err)
		os.Exit(1)
	}
}
