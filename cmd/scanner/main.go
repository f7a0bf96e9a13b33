// Package main wires together the presence scanner service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/analyzer"
	"github.com/presencelab/presence-scanner/internal/api"
	"github.com/presencelab/presence-scanner/internal/browser"
	"github.com/presencelab/presence-scanner/internal/clock/system"
	"github.com/presencelab/presence-scanner/internal/config"
	gcsevidence "github.com/presencelab/presence-scanner/internal/evidence/gcs"
	localevidence "github.com/presencelab/presence-scanner/internal/evidence/local"
	"github.com/presencelab/presence-scanner/internal/id/uuid"
	"github.com/presencelab/presence-scanner/internal/logging"
	"github.com/presencelab/presence-scanner/internal/metrics"
	lognotify "github.com/presencelab/presence-scanner/internal/notify/log"
	pubsubnotify "github.com/presencelab/presence-scanner/internal/notify/pubsub"
	"github.com/presencelab/presence-scanner/internal/orchestrator"
	"github.com/presencelab/presence-scanner/internal/pagespeed"
	"github.com/presencelab/presence-scanner/internal/places"
	"github.com/presencelab/presence-scanner/internal/probe"
	memqueue "github.com/presencelab/presence-scanner/internal/queue/memory"
	"github.com/presencelab/presence-scanner/internal/runner"
	"github.com/presencelab/presence-scanner/internal/scan"
	memstore "github.com/presencelab/presence-scanner/internal/store/memory"
	pgstore "github.com/presencelab/presence-scanner/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	evidence, err := buildEvidence(ctx, cfg)
	if err != nil {
		logger.Fatal("evidence store init failed", zap.Error(err))
	}

	notifier, closeNotify, err := buildNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("notifier init failed", zap.Error(err))
	}
	defer closeNotify()

	clock := system.New()
	idGen := uuid.NewGenerator()
	machine := scan.NewMachine(store, clock, logger.Named("state"))
	queue := memqueue.NewQueue(cfg.Runner.QueueDepth)

	pageProbe := probe.New(probe.Config{
		CaptureScreenshots: cfg.Probe.CaptureScreenshots,
		EvidencePrefix:     cfg.Evidence.Prefix,
	}, evidence, logger.Named("probe"))

	var speed analyzer.SpeedAPI
	if cfg.PageSpeed.APIKey != "" {
		speed = pagespeed.New(pagespeed.Config{
			APIKey:   cfg.PageSpeed.APIKey,
			Endpoint: cfg.PageSpeed.Endpoint,
			QPS:      cfg.PageSpeed.QPS,
			Timeout:  time.Duration(cfg.PageSpeed.TimeoutSec) * time.Second,
		}, nil)
	}
	var placesClient *places.Client
	if cfg.Places.APIKey != "" {
		placesClient = places.New(places.Config{
			APIKey:   cfg.Places.APIKey,
			Endpoint: cfg.Places.Endpoint,
			Timeout:  time.Duration(cfg.Places.TimeoutSec) * time.Second,
		}, nil)
	}

	website := analyzer.NewWebsite(pageProbe, speed, logger.Named("website"))
	profile := newProfileAnalyzer(placesClient, logger)
	reviews := newReviewsAnalyzer(placesClient, logger)
	ordering := analyzer.NewOrdering(pageProbe, cfg.Browser.UserAgent,
		cfg.Browser.OpTimeout(), logger.Named("ordering"))

	browserCfg := browser.Config{
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		UserAgent:      cfg.Browser.UserAgent,
		NavTimeout:     cfg.Browser.NavTimeout(),
		OpTimeout:      cfg.Browser.OpTimeout(),
	}
	sessions := func() orchestrator.Session {
		return browser.NewSession(browserCfg, logger.Named("browser"))
	}

	orch := orchestrator.New(store, machine, sessions,
		website, profile, reviews, ordering, clock, logger.Named("orchestrator"))

	scanRunner := runner.New(queue, orch, machine, store, notifier, runner.Policy{
		MaxAttempts: cfg.Runner.MaxAttempts,
		Backoff:     cfg.Runner.Backoff(),
	}, logger.Named("runner"))
	workers := scanRunner.Start(ctx, cfg.Runner.Workers)

	availability := func(ctx context.Context, rawURL string) error {
		return probe.CheckAvailability(ctx, nil, rawURL,
			time.Duration(cfg.Probe.AvailabilityTimeoutSec)*time.Second)
	}
	apiServer := api.NewServer(store, queue, machine, orch, idGen, clock,
		availability, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	workers.Wait()
	logger.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config) (scan.Store, func(), error) {
	switch cfg.DB.Provider {
	case "", "memory":
		return memstore.NewStore(), func() {}, nil
	case "postgres":
		store, err := pgstore.NewStore(ctx, pgstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}
}

func buildEvidence(ctx context.Context, cfg config.Config) (scan.EvidenceStore, error) {
	switch cfg.Evidence.Provider {
	case "", "local":
		return localevidence.New(localevidence.Config{BaseDir: cfg.Evidence.BaseDir})
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcsevidence.New(client, gcsevidence.Config{Bucket: cfg.Evidence.GCSBucket})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown evidence provider %q", cfg.Evidence.Provider)
	}
}

func buildNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (scan.Notifier, func(), error) {
	switch cfg.Notify.Provider {
	case "", "log":
		return lognotify.New(logger.Named("notify")), func() {}, nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Notify.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Notify.TopicName)
		closeFn := func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub client close failed", zap.Error(err))
			}
		}
		return pubsubnotify.New(topic), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify provider %q", cfg.Notify.Provider)
	}
}

// newProfileAnalyzer keeps the nil-client case out of the interface:
// a nil *places.Client inside a non-nil interface would dodge the
// analyzer's not-configured guard.
func newProfileAnalyzer(client *places.Client, logger *zap.Logger) *analyzer.Profile {
	if client == nil {
		return analyzer.NewProfile(nil, logger.Named("profile"))
	}
	return analyzer.NewProfile(client, logger.Named("profile"))
}

func newReviewsAnalyzer(client *places.Client, logger *zap.Logger) *analyzer.Reviews {
	if client == nil {
		return analyzer.NewReviews(nil, logger.Named("reviews"))
	}
	return analyzer.NewReviews(client, logger.Named("reviews"))
}
