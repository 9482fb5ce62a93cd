// Package main provides the entry point for wgconv.
// wgconv converts WireGuard client configurations into proxy-core
// "endpoints" documents and applies them to stored profiles.
//
// Features:
//   - Permissive WireGuard INI parsing with typed errors for missing
//     endpoints and bad ports
//   - Extension fields merged into every generated endpoint
//   - YAML or SQLite profile storage
//   - Kernel restart when the active profile changes
//   - Interactive terminal flow with clipboard and desktop notifications
//
// Usage:
//
//	wgconv convert wg0.conf
//	wgconv apply --profile Office wg0.conf
//	wgconv run
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/yllada/wgconv/cli"
	"github.com/yllada/wgconv/clipboard"
	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/config"
	"github.com/yllada/wgconv/kernel"
	"github.com/yllada/wgconv/keyring"
	"github.com/yllada/wgconv/notify"
	"github.com/yllada/wgconv/profile"
	"github.com/yllada/wgconv/tui"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

func main() {
	if err := common.InitLogger(common.LogConfig{
		Level:       common.LevelInfo,
		EnableFile:  true,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	defer common.CloseLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := cli.BuildInfo{Version: appVersion, Commit: commitSHA, Date: buildTime}
	if err := cli.Execute(ctx, info, openApp, os.Args[1:]); err != nil {
		common.LogDebug("Command failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		common.CloseLogger()
		os.Exit(1)
	}
}

// openApp wires the system collaborators for cfg.
func openApp(cfg *config.Config) (*cli.App, error) {
	store, err := profile.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s profile store: %w", cfg.Store, err)
	}

	dataDir, err := common.GetDataDir()
	if err != nil {
		store.Close()
		return nil, err
	}
	runDir := filepath.Join(dataDir, common.RunDirName)

	app := &cli.App{
		Config:    cfg,
		Profiles:  store,
		Kernel:    kernel.NewManager(kernel.OptionsFromConfig(cfg.Kernel, runDir)),
		Clipboard: clipboard.New(),
		Notifier:  notify.New(cfg.ShowNotifications),
		Prompter:  tui.New(),
	}

	if cfg.RememberInput {
		configDir, err := common.GetConfigDir()
		if err == nil {
			var history *keyring.Store
			history, err = keyring.Open(configDir)
			if err == nil {
				app.History = history
			}
		}
		if err != nil {
			common.LogWarn("Input history disabled: %v", err)
		}
	}

	return app, nil
}
