package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"collatz-checker/internal/api"
	"collatz-checker/internal/collatz"
	"collatz-checker/internal/report"
	"collatz-checker/internal/store"
)

const shutdownTimeout = 10 * time.Second

var addrFlag string

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve convergence checks over HTTP",
	Long: `Starts an HTTP server sharing one memo between requests:

  GET  /check/{n}       check n and merge the trace on success
  GET  /memo/{n}        whether n is already memoized
  GET  /memo            memo size
  POST /memo/snapshot   persist the memo through the configured store

The memo is saved once more when the server shuts down.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	addr := cfg.Server.Addr
	if addrFlag != "" {
		addr = addrFlag
	}

	st, closeStore := openStore(ctx)
	defer closeStore()

	memo := collatz.NewSyncSet(store.LoadMemo(ctx, st, logger))
	checker := collatz.NewChecker(collatz.WithReporter(report.NewZapReporter(logger)))
	server := api.NewServer(checker, memo, st, logger)

	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	h := api.HandlerFromMux(server, mux)

	s := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", addr), zap.Int("memo_size", memo.Len()))
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown failed", zap.Error(err))
		}
	}

	_ = store.SaveMemo(context.WithoutCancel(ctx), st, memo.Values(), logger)
	return nil
}
