// Package main provides the CLI entry point for framecast.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/framecast/pkg/adapters/chromebrowser"
	"github.com/user/framecast/pkg/adapters/ffmpegencoder"
	"github.com/user/framecast/pkg/adapters/logger"
	"github.com/user/framecast/pkg/adapters/osfilesystem"
	"github.com/user/framecast/pkg/adapters/playwrightbrowser"
	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/config"
	"github.com/user/framecast/pkg/controller"
	"github.com/user/framecast/pkg/httpapi"
	"github.com/user/framecast/pkg/ports"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:  "framecast",
		Usage: "Capture headless-browser renders and assemble them into video",
		Commands: []*cli.Command{
			recordCommand(),
			serveCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Capture a single target and write the video to a file",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Output MP4 file path."},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file path."},
			&cli.Float64Flag{Name: "fps", Usage: "Sampling and playback frame rate."},
			&cli.IntFlag{Name: "duration-ms", Usage: "Capture duration in milliseconds."},
			&cli.IntFlag{Name: "frames", Usage: "Capture frame count (overrides duration)."},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: "Video quality (CRF 0-63, lower is better)."},
			&cli.StringFlag{Name: "driver", Usage: "Browser driver (chromedp or playwright)."},
			&cli.BoolFlag{Name: "no-headless", Usage: "Run the browser in visible mode."},
			&cli.StringFlag{Name: "chrome-path", Usage: "Path to Chrome executable (falls back to CHROME_PATH env)."},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: "Log level (debug, info, warn, error)."},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: "Suppress all log output."},
		},
		Action: runRecord,
	}
}

func runRecord(c *cli.Context) error {
	target := c.Args().First()
	if target == "" {
		return fmt.Errorf("a target URL is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("driver") {
		cfg.Driver = c.String("driver")
	}
	if c.Bool("no-headless") {
		cfg.Headless = false
	}
	if v := c.String("chrome-path"); v != "" {
		cfg.ChromePath = v
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(c.String("log-level")))
	}

	ctx, cancel := signalContext(context.Background(), log)
	defer cancel()

	// One-shot mode never needs more than one session.
	ctrlCfg := cfg.ToControllerConfig()
	ctrlCfg.PoolSize = 1
	ctrlCfg.SweepSchedule = ""

	ctrl, err := controller.New(ctrlCfg, osfilesystem.New(), log, browserFactory(cfg.Driver), encoderFactory())
	if err != nil {
		return err
	}
	defer ctrl.Close()

	spec := capture.JobSpec{Target: target}
	if c.IsSet("fps") {
		spec.FPS = c.Float64("fps")
	}
	if c.IsSet("frames") {
		spec.MaxFrames = c.Int("frames")
	} else if c.IsSet("duration-ms") {
		spec.Duration = time.Duration(c.Int("duration-ms")) * time.Millisecond
	}

	id, err := ctrl.Submit(spec)
	if err != nil {
		return err
	}

	// Relay interrupts as cancellation so a stopped run still encodes what
	// it has.
	go func() {
		<-ctx.Done()
		ctrl.Cancel(id)
	}()

	artifact, err := ctrl.Result(context.Background(), id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := os.WriteFile(c.String("output"), data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	log.Info("Wrote %s (%d frames, %d gap fills, %d ms)",
		c.String("output"), artifact.FrameCount, artifact.Gaps, artifact.DurationMs)
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the capture service with the HTTP control surface",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file path."},
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)."},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	// A missing .env is fine; env vars may come from the platform.
	godotenv.Load()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if v := c.String("addr"); v != "" {
		cfg.ListenAddr = v
	}

	zl := logger.NewZerologConsole(ports.ParseLogLevel(cfg.LogLevel), false)

	ctrl, err := controller.New(cfg.ToControllerConfig(), osfilesystem.New(), zl, browserFactory(cfg.Driver), encoderFactory())
	if err != nil {
		return err
	}
	defer ctrl.Close()

	router := httpapi.NewRouter(ctrl, zl.Raw())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext(context.Background(), zl)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("Listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		zl.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("framecast %s\n", version)
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.Defaults(), nil
}

func browserFactory(driver string) controller.BrowserFactory {
	if driver == "playwright" {
		return func() ports.Browser { return playwrightbrowser.New() }
	}
	return func() ports.Browser { return chromebrowser.New() }
}

func encoderFactory() controller.EncoderFactory {
	return func() ports.VideoEncoder { return ffmpegencoder.New() }
}

// signalContext cancels the returned context on SIGINT/SIGTERM.
func signalContext(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
