package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	v1 "go_sitectl/api/v1"
	"go_sitectl/internal/acme"
	"go_sitectl/internal/httpx"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and renew certificates on schedule",
		Args:  cobra.NoArgs,
		RunE: c.with(func(cmd *cobra.Command, _ []string, a *app) error {
			if err := serve(cmd.Context(), a); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Server stopped")
			return nil
		}),
	}
}

func serve(ctx context.Context, a *app) error {
	if err := a.cfg.ValidateServer(); err != nil {
		return err
	}
	httpx.Log = a.log.WithField("component", "api")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	accessLog := a.log.WithField("component", "http").WriterLevel(logrus.InfoLevel)
	defer accessLog.Close()
	r.Use(gin.LoggerWithWriter(accessLog), gin.Recovery())
	v1.SetupRouter(r, a.cfg, a.engine)

	worker := acme.NewRenewWorker(a.engine, a.cfg.ACME.RenewCron, a.log.WithFields(nil))
	if err := worker.Start(); err != nil {
		return err
	}
	defer worker.Stop()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("Server starting on %s", a.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
