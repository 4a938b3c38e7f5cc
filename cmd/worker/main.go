package main

import (
	"log/slog"
	"os"

	"github.com/specvital/worker/internal/app/bootstrap"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := bootstrap.StartWorker(bootstrap.WorkerConfig{
		ServiceName: "extraction-worker",
	}); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
