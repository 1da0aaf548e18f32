package main

import (
	"context"
	"embed"
	"flag"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/frametree/pkg/config"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	var (
		configPath = flag.String("config", "frametree.yaml", "settings file (defaults are used when it is missing)")
		docPath    = flag.String("open", "", "frame document to open at startup")
		scriptPath = flag.String("script", "", "frame script to evaluate at startup")
		demo       = flag.Bool("demo", false, "start with the robot arm demo")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	app, err := NewApp(cfg)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *docPath != "":
		if _, err := app.OpenDocument(*docPath); err != nil {
			log.Fatal(err)
		}
	case *scriptPath != "":
		res, err := app.OpenScript(*scriptPath)
		if err != nil {
			log.Fatal(err)
		}
		for _, e := range res.Errors {
			log.Printf("%s:%d: %s", *scriptPath, e.Line, e.Message)
		}
	case *demo:
		if _, err := app.LoadDemo(); err != nil {
			log.Fatal(err)
		}
	}

	err = wails.Run(&options.App{
		Title:  "frametree",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: func(ctx context.Context) {
			app.emit = func(name string, data ...interface{}) {
				runtime.EventsEmit(ctx, name, data...)
			}
			app.startup(ctx)
		},
		OnShutdown: app.shutdown,
		Bind:       []interface{}{app},
	})
	if err != nil {
		log.Fatal(err)
	}
}
