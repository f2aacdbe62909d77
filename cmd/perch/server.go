package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/perchlab/perch/internal/backup"
	"github.com/perchlab/perch/internal/collectors"
	"github.com/perchlab/perch/internal/duckdb"
	"github.com/perchlab/perch/internal/logging"
	"github.com/perchlab/perch/internal/plugin"
	"github.com/perchlab/perch/internal/query"
	"github.com/perchlab/perch/internal/scheduler"
	"github.com/perchlab/perch/internal/web"
)

// runServer wires storage, plugins, the scheduler, and the HTTP API,
// then blocks until a shutdown signal.
func runServer(cfg appConfig) error {
	logger := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	defer logger.Sync()

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	store.SetMaxConcurrentQueries(cfg.MaxConcurrentReads)

	retentionCleaner := duckdb.NewRetentionCleaner(store, logger, duckdb.RetentionConfig{
		RetentionDays: cfg.RetentionDays,
	})
	if retentionCleaner != nil {
		defer retentionCleaner.Stop()
	}

	backupManager, err := backup.NewManager(store, backup.Config{
		Enabled:        cfg.BackupEnabled,
		Interval:       cfg.BackupInterval,
		LocalDir:       cfg.BackupLocalDir,
		KeepLast:       cfg.BackupKeepLast,
		BucketURL:      cfg.BackupBucketURL,
		S3Endpoint:     cfg.BackupS3Endpoint,
		S3Region:       cfg.BackupS3Region,
		S3AccessKey:    cfg.BackupS3AccessKey,
		S3SecretKey:    cfg.BackupS3SecretKey,
		S3SessionToken: cfg.BackupS3SessionToken,
		S3UseSSL:       cfg.BackupS3UseSSL,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	if backupManager != nil {
		defer backupManager.Stop()
	}

	plugins, err := buildPlugins(cfg, logger)
	if err != nil {
		return err
	}
	if len(plugins) == 0 {
		return fmt.Errorf("no plugins could be built")
	}

	runner := scheduler.New(store, logger, scheduler.Config{
		PersistGrace: cfg.PersistGrace,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now — not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	handler := query.NewHandler(plugins, store)

	var apiServer *web.Server
	if cfg.APIEnabled {
		apiServer = web.NewServer(web.Config{
			Addr:          cfg.APIAddr,
			TrustedSubnet: cfg.TrustedSubnet,
			AuthKey:       cfg.AuthKey,
		}, handler, store, runner, logger)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	printStartupBanner(cfg, plugins)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx, plugins)
	})

	if err := g.Wait(); err != nil {
		logger.Error("scheduler exited with error", zap.Error(err))
	}

	signal.Stop(sigCh)
	return nil
}

// buildPlugins registers the built-in collectors and resolves the
// manifest into plugin instances. Without a manifest every built-in
// runs with its defaults.
func buildPlugins(cfg appConfig, logger *zap.Logger) ([]*plugin.Plugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := plugin.NewRegistry(logger)
	if err := collectors.Register(registry); err != nil {
		return nil, fmt.Errorf("registering collectors: %w", err)
	}

	entries, err := plugin.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	if entries == nil {
		for _, name := range registry.Names() {
			entries = append(entries, plugin.ManifestEntry{Name: name})
		}
	}

	var plugins []*plugin.Plugin
	for _, res := range registry.Build(entries) {
		if res.Err != nil {
			logger.Warn("skipping plugin", zap.String("plugin", res.Name), zap.Error(res.Err))
			continue
		}
		plugins = append(plugins, res.Plugin)
	}
	return plugins, nil
}

func printStartupBanner(cfg appConfig, plugins []*plugin.Plugin) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╔═╗╦═╗╔═╗╦ ╦
    ╠═╝║╣ ╠╦╝║  ╠═╣
    ╩  ╚═╝╩╚═╚═╝╩ ╩`)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, "")
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "in-memory"
	}
	lines = append(lines, fmt.Sprintf("    %s  Samples        %s", check, dim.Render(shortenPath(dbPath))))
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupLocalDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Plugins"))
	lines = append(lines, "")
	for _, p := range plugins {
		props, err := p.Properties()
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("    %s  %-14s %s", check, props.Name, dim.Render(props.Every.String())))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
