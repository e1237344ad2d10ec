package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/metrics"
	"github.com/sells-group/geoplot/internal/server"
	"github.com/sells-group/geoplot/internal/store"
)

var (
	servePort   int
	serveNoPres bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interactive map HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var st store.Store
		if !serveNoPres {
			s, err := initStore(ctx)
			if err != nil {
				zap.L().Warn("preset store unavailable, presets disabled", zap.Error(err))
			} else {
				defer s.Close()
				st = s
			}
		}

		handler, env, err := buildServer(cfg, st)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Server.FetchDefaultBoundaries {
			go func() {
				// Errors are logged by the session; the UI can retry via POST /boundaries/default.
				_ = env.Session.FetchDefaultBoundaries(ctx)
			}()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildServer wires a fresh session, metrics registry and router.
func buildServer(c *config.Config, st store.Store) (http.Handler, *mapEnv, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	env, err := initMapEnv(c, m)
	if err != nil {
		return nil, nil, err
	}

	srv := server.New(env.Session, st, m, server.Options{
		CORSOrigins:    c.Server.CORSOrigins,
		MaxUploadBytes: c.Upload.MaxBytes,
		Gatherer:       reg,
	})
	return srv, env, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoPres, "no-presets", false, "run without the preset store")
	rootCmd.AddCommand(serveCmd)
}
