package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/ncruces/zenity"

	"github.com/iburimskiy/bodo-installation/internal/assets"
	"github.com/iburimskiy/bodo-installation/internal/config"
	"github.com/iburimskiy/bodo-installation/internal/device"
	"github.com/iburimskiy/bodo-installation/internal/game"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		assetDir   = flag.String("assets", "", "directory holding the model files (overrides config)")
		logLevel   = flag.String("log-level", "", "error, warn, info or debug (overrides config)")
		pickAssets = flag.Bool("pick-assets", false, "choose the asset directory in a dialog")
		noAudio    = flag.Bool("no-audio", false, "meter device audio without opening the speaker")
	)
	flag.Parse()

	if err := run(*configPath, *assetDir, *logLevel, *pickAssets, *noAudio); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath, assetDir, logLevel string, pickAssets, noAudio bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, err := config.NewLogger(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	if assetDir != "" {
		cfg.Assets.Dir = assetDir
	}
	if pickAssets {
		dir, err := pickAssetDir(cfg.Assets.Dir)
		if err != nil {
			return err
		}
		cfg.Assets.Dir = dir
	}
	logger.Info("starting", "assets", cfg.Assets.Dir, "device", cfg.Device.Enabled)

	catalog := assets.DefaultCatalog()
	registry := assets.NewRegistry(catalog, assets.Options{
		Layer:     config.InteractiveLayer,
		SliderMin: cfg.Interaction.SliderMin,
		SliderMax: cfg.Interaction.SliderMax,
	}, logger)
	loads := assets.NewLoader(cfg.Assets.Dir, cfg.Assets.Ext, logger).LoadAll(catalog.Names())

	bridge := newBridge(cfg.Device, noAudio, logger)
	defer func() {
		if err := bridge.Close(); err != nil {
			logger.Debug("device close", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Device.Enabled {
		bridge.Connect(ctx)
	}

	g := game.New(game.Options{
		Config:   cfg,
		Catalog:  catalog,
		Registry: registry,
		Loads:    loads,
		Bridge:   bridge,
		Logger:   logger,
	})

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// newBridge builds the device bridge. A failing speaker leaves the bridge
// without audio output; the scene still runs.
func newBridge(cfg config.DeviceConfig, noAudio bool, logger *slog.Logger) *device.Bridge {
	out, err := device.NewOutput(device.OutputOptions{
		SampleRate: cfg.SampleRate,
		BufferMS:   cfg.BufferMS,
		Gain:       cfg.OutputGain,
		Speaker:    cfg.Audio && !noAudio,
	}, logger)
	if err != nil {
		logger.Warn("audio output unavailable", "err", err)
		out = nil
	}
	return device.NewBridge(device.Options{
		PatchURL:         cfg.PatchURL,
		DependenciesURL:  cfg.DependenciesURL,
		RuntimeURL:       cfg.RuntimeURL,
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutMS) * time.Millisecond,
	}, out, logger)
}

// pickAssetDir asks for the asset directory. Cancelling keeps current.
func pickAssetDir(current string) (string, error) {
	dir, err := zenity.SelectFile(
		zenity.Title("Choose Model Directory"),
		zenity.Directory(),
		zenity.Filename(current),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return current, nil
		}
		return "", err
	}
	return dir, nil
}
