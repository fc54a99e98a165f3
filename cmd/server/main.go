package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"timeledger/internal/auth"
	"timeledger/internal/config"
	"timeledger/internal/handler"
	"timeledger/internal/i18n"
	"timeledger/internal/mattermost"
	"timeledger/internal/metrics"
	"timeledger/internal/service"
	"timeledger/internal/store"
	"timeledger/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	setupLogging(cfg)

	if err := i18n.Init(cfg.DefaultLocale); err != nil {
		log.WithError(err).Fatal("failed to load locales")
	}
	// Hours go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB, cfg.MongoTransactions)
	if err != nil {
		return errors.Wrap(err, "connect to MongoDB")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.WithError(err).Warn("close MongoDB")
		}
	}()

	// Stores
	entryStore, err := store.NewEntryStore(ctx, db)
	if err != nil {
		return err
	}
	clockStore, err := store.NewClockStore(ctx, db)
	if err != nil {
		return err
	}
	leaveStore, err := store.NewLeaveStore(ctx, db)
	if err != nil {
		return err
	}
	projectStore, err := store.NewProjectStore(ctx, db)
	if err != nil {
		return err
	}
	holidayStore, err := store.NewHolidayStore(ctx, db)
	if err != nil {
		return err
	}
	userStore := store.NewUserStore(db)

	// Notifications
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.NotificationsEnabled() {
		mm := mattermost.NewNotifier(mattermost.NewClient(cfg.MattermostURL, cfg.MattermostBotToken), cfg.MattermostChannelID)
		defer mm.Close()
		notifier = mm
	} else {
		log.Info("Mattermost notifications disabled")
	}

	// Services
	staleCap := service.WithStaleCap(cfg.StaleSessionCap)
	entrySvc := service.NewEntryService(entryStore, projectStore)
	clockSvc := service.NewClockService(db, clockStore, entryStore, notifier, staleCap)
	leaveSvc := service.NewLeaveService(db, leaveStore, entryStore, notifier)
	projectSvc := service.NewProjectService(db, projectStore, entryStore)
	holidaySvc := service.NewHolidayService(db, holidayStore, userStore)

	// Routes
	verifier := auth.NewVerifier(cfg.JWTSecret)
	api := http.NewServeMux()
	handler.NewEntryHandler(entrySvc).RegisterRoutes(api)
	handler.NewClockHandler(clockSvc).RegisterRoutes(api)
	handler.NewLeaveHandler(leaveSvc).RegisterRoutes(api)
	handler.NewProjectHandler(projectSvc).RegisterRoutes(api)
	handler.NewHolidayHandler(holidaySvc).RegisterRoutes(api)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	mux := http.NewServeMux()
	mux.Handle("/api/", verifier.Middleware(api))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("readiness check failed")
			http.Error(w, "mongodb unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(handler.LocaleMiddleware(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"port": cfg.Port, "env": cfg.Env}).Info("timeledger started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.New(clockSvc, cfg.SweepInterval).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
