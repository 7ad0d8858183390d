package main

import (
	"embed"
	"log/slog"
	"os"

	"github.com/chazu/nodescope/pkg/config"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// configPath is read from NODESCOPE_CONFIG, defaulting to nodescope.yaml in
// the working directory. A missing file means defaults.
func configPath() string {
	if p := os.Getenv("NODESCOPE_CONFIG"); p != "" {
		return p
	}
	return "nodescope.yaml"
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath())
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}
	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("creating app", "error", err)
		os.Exit(1)
	}

	err = wails.Run(&options.App{
		Title:  "nodescope",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: assetHandler(),
		},
		BackgroundColour: &options.RGBA{R: 17, G: 17, B: 17, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Error("wails", "error", err)
		os.Exit(1)
	}
}
