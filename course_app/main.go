package main

//go:generate glslc shaders/shader.vert -o shaders/vert.spv
//go:generate glslc shaders/shader.frag -o shaders/frag.spv

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/meshrender/renderer"
	"golang.org/x/exp/slog"
)

type courseApp struct {
	cfg    Config
	logger *slog.Logger

	window   *sdl.Window
	renderer *renderer.Renderer
	stats    *frameStats
}

func (app *courseApp) Run(loaded *assets) error {
	err := app.initWindow()
	if err != nil {
		return err
	}
	defer app.closeWindow()

	app.renderer = renderer.New(renderer.Options{
		ApplicationName:   app.cfg.Title,
		EnableValidation:  app.cfg.Validation,
		MaxFramesInFlight: app.cfg.FramesInFlight,
		VertexShader:      loaded.vertexShader,
		FragmentShader:    loaded.fragmentShader,
		ClearColor:        app.cfg.ClearColor,
		Meshes:            loaded.meshes,
		Logger:            app.logger,
	})

	err = app.renderer.Init(app.window)
	if err != nil {
		return err
	}
	defer app.renderer.Cleanup()

	app.stats = newFrameStats(app.cfg.StatsInterval.Duration)
	return app.mainLoop()
}

func (app *courseApp) initWindow() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init sdl")
	}

	window, err := sdl.CreateWindow(app.cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(app.cfg.Width), int32(app.cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return errors.Wrap(err, "create window")
	}
	app.window = window

	return nil
}

func (app *courseApp) closeWindow() {
	if app.window != nil {
		app.window.Destroy()
		app.window = nil
	}
	sdl.Quit()
}

func (app *courseApp) mainLoop() error {
	rendering := true

appLoop:
	for true {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.KeyboardEvent:
				if e.State == sdl.PRESSED && e.Keysym.Sym == sdl.K_ESCAPE {
					break appLoop
				}
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					if !rendering {
						app.stats.resume()
					}
					rendering = true
				}
			}
		}

		if rendering {
			err := app.renderer.Draw()
			if err != nil {
				return err
			}
			app.stats.frame(app.logger, app.renderer.FrameCount())
		} else {
			sdl.Delay(10)
		}
	}

	app.logger.Info("main loop finished", slog.Uint64("frames", app.renderer.FrameCount()))
	return nil
}

func newLogger(cfg Config) *slog.Logger {
	level, _ := cfg.logLevel()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(args []string) int {
	cfg, err := loadConfig(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		return 1
	}

	logger := newLogger(cfg)

	loaded, err := loadAssets(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load assets", slog.Any("error", err))
		return 1
	}

	app := &courseApp{
		cfg:    cfg,
		logger: logger,
	}

	err = app.Run(loaded)
	if err != nil {
		logger.Error("renderer stopped", slog.String("error", fmt.Sprintf("%+v", err)))
		for _, hint := range errors.GetAllHints(err) {
			logger.Info(hint)
		}
	}
	return renderer.ExitCode(err)
}

func main() {
	runtime.LockOSThread()
	os.Exit(run(os.Args[1:]))
}
