package main

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/phoneverify/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		slog.Error("application stopped with error", "error", err)
		os.Exit(1)
	}
}
