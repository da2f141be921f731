package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mchurichi/logdash/internal/config"
	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/pkg/server"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	host      string
	port      int
	noBrowser bool
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Override config with CLI flags
			if f.host != "" {
				a.cfg.Server.Host = f.host
			}
			if f.port > 0 {
				a.cfg.Server.Port = f.port
			}
			if f.noBrowser {
				a.cfg.Server.AutoOpenBrowser = false
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", "", "Address to bind (overrides config)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "HTTP port (overrides config)")
	cmd.Flags().BoolVar(&f.noBrowser, "no-browser", false, "Don't auto-open browser")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Get(ctx)

	logDir := config.ExpandPath(cfg.Logs.Dir)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if cfg.Auth.UsesDefaultCredentials() {
		log.Warnw("using default credentials, set auth.password or auth.password_hash", "username", cfg.Auth.Username)
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.NewServer(a.engine(), server.Credentials{
		Username:     cfg.Auth.Username,
		Password:     cfg.Auth.Password,
		PasswordHash: cfg.Auth.PasswordHash,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.Server.Addr())
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	log.Infow("dashboard available", "url", url, "log_dir", logDir)
	if cfg.Server.AutoOpenBrowser {
		go openBrowser(ctx, url)
	}

	return g.Wait()
}

func openBrowser(ctx context.Context, url string) {
	log := logger.Get(ctx)
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		log.Infow("cannot auto-open browser", "os", runtime.GOOS, "url", url)
		return
	}

	if err := cmd.Start(); err != nil {
		log.Infow("failed to open browser", "error", err, "url", url)
	}
}
