package main

import (
	"flag"
	"fmt"
	"os"

	"AstroOverlap/internal/di"
	"AstroOverlap/pkg/config"
	applogger "AstroOverlap/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "app initialization failed: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		l, _ := applogger.New(&applogger.Config{Level: "error", Format: cfg.Log.Format, Output: "stderr"})
		if l != nil {
			l.Error("app error", applogger.Error(err))
		}
		os.Exit(1)
	}
}
