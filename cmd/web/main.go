// Command web runs the StaffPulse weekly report service: report uploads,
// extraction, insights, assistant Q&A and the progress WebSocket.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"staffpulse/internal/app"
	"staffpulse/pkg/contracts"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
