package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/metrics"
	"github.com/sells-group/saferoute/internal/predict"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the dataset, train the fallback and serve predictions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		// Nothing is served until the dataset is loaded and the model trained.
		snap, training, err := loadSnapshot(ctx, cfg)
		if err != nil {
			return err
		}

		m := metrics.New()
		m.Startup(snap.Len(), training)
		p := predict.New(snap, predict.WithRecorder(m))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(p, m, cfg.Server, cfg.Predict),
			ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		}

		return runServer(ctx, srv, time.Duration(cfg.Server.ShutdownSecs)*time.Second)
	},
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	})

	return g.Wait()
}

// buildRouter wires the HTTP API around p.
func buildRouter(p *predict.Predictor, m *metrics.Metrics, sc config.ServerConfig, pc config.PredictConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(m))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	h := &handlers{predictor: p, predict: pc}

	r.Get("/", h.home)
	r.Get("/health", h.health)
	r.Handle("/metrics", m.Handler())

	var limiter *rate.Limiter
	if sc.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(sc.RateLimit), sc.RateBurst)
	}
	r.With(rateLimit(limiter)).Post("/predict_route", h.predictRoute)

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
