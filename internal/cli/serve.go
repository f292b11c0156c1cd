package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/taskboard/internal/api"
	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/query"
	"github.com/eleven-am/taskboard/internal/stats"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/writer"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, config)
		},
	}
}

func runServe(ctx context.Context, cfg *Config) error {
	log := logger.CLI()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := databaseConfig(cfg).Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var middleware []orm.QueryMiddleware
	if cfg.Database.SlowQuery > 0 {
		middleware = append(middleware, orm.SlowQueryMiddleware(logger.DB(), cfg.Database.SlowQuery))
	}
	st := store.New(db, middleware...)

	handler := api.NewServer(api.Services{
		Query:  query.New(st, query.WithLocation(loc)),
		Stats:  stats.New(st),
		Writer: writer.New(st),
		Store:  st,
	}, api.Options{
		CORSOrigin: cfg.HTTP.CORSOrigin,
		Timeout:    cfg.HTTP.Timeout,
		Location:   loc,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("address", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
