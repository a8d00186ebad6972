package main

import (
	"log/slog"
	"os"

	"github.com/saurabh97858/myshow-sub000/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
