package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/agentcore/internal/adapter"
	"github.com/user/agentcore/internal/hub"
	"github.com/user/agentcore/internal/orchestrator"
	"github.com/user/agentcore/internal/session"
	"github.com/user/agentcore/internal/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestrator daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "orchestratord.pid")
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := pidFilePath(dataDir)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	messages, err := store.NewSQLiteMessageStore(filepath.Join(cfg.DataDir, "messages.db"))
	if err != nil {
		return fmt.Errorf("open message store: %w", err)
	}
	defer messages.Close()

	projects := store.NewFileProjectStore(filepath.Join(cfg.DataDir, "projects"))
	prompts := store.NewFilePromptLoader(filepath.Join(cfg.DataDir, "prompts"))

	orchCfg := cfg.ToOrchestratorConfig()
	registry := adapter.DefaultRegistry(orchCfg.AvailabilityCacheTTL)
	sessions := session.New()

	manager := orchestrator.NewManager(orchCfg, projects, registry, sessions, messages, prompts)
	defer manager.Shutdown()

	h := hub.New(hub.Config{
		SubscriberQueueCapacity: orchCfg.SubscriberQueueCapacity,
		HistoryReplayDefault:    orchCfg.HistoryReplayDefault,
	}, manager, messages)

	srv := hub.NewServer(h, registry, projects, messages)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("orchestratord listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("orchestratord started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"listen_addr", cfg.ListenAddr,
		"pid_file", pidPath,
		"agents", registry.List(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}

		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
