package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sandover/plasmite/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP pool adapter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		registry := registryWithLogger(cfg, log)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: server.New(registry, log),
		}

		wg, ctx := errgroup.WithContext(context.Background())

		wg.Go(func() error {
			log.Infof("listening on %s", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		wg.Go(func() error {
			sig := waitInterrupted(ctx)
			log.Infow("shutting down", "signal", sig)
			return httpServer.Shutdown(context.Background())
		})

		return wg.Wait()
	},
}

// waitInterrupted blocks until SIGINT/SIGTERM arrives or ctx ends,
// returning the signal received (nil if ctx ended first).
func waitInterrupted(ctx context.Context) os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case s := <-ch:
		return s
	case <-ctx.Done():
		return nil
	}
}
