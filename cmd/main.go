package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	grpcapi "scam-guard-service/internal/api/grpc"
	"scam-guard-service/internal/api/ws"
	"scam-guard-service/internal/app"
	"scam-guard-service/internal/config"
	"scam-guard-service/internal/events"
	apphttp "scam-guard-service/internal/http"
	"scam-guard-service/internal/observability"
	"scam-guard-service/internal/observability/metrics"
	"scam-guard-service/internal/schema"
	"scam-guard-service/internal/service/classifier"
	anthropicclassifier "scam-guard-service/internal/service/classifier/anthropic"
	geminiclassifier "scam-guard-service/internal/service/classifier/gemini"
	mockclassifier "scam-guard-service/internal/service/classifier/mock"
	"scam-guard-service/internal/service/pipeline"
	"scam-guard-service/internal/service/registry"
	"scam-guard-service/internal/service/stt"
	googlestt "scam-guard-service/internal/service/stt/google"
	mockstt "scam-guard-service/internal/service/stt/mock"
	"scam-guard-service/internal/service/verdict"
	"scam-guard-service/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	application := app.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transcriber, err := newTranscriber(ctx, cfg.STT)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("Failed to create transcriber")
	}
	clf, err := newClassifier(ctx, cfg.Classifier)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Classifier.Provider).Msg("Failed to create classifier")
	}

	// Create Kafka publisher with separate topics for verdicts and session lifecycle
	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicVerdict: cfg.Kafka.TopicVerdict,
		TopicSession: cfg.Kafka.TopicSession,
		Principal:    cfg.Kafka.Principal,
	})

	var mirror registry.Mirror
	if cfg.Redis.Enabled {
		m, err := registry.NewRedisMirror(ctx, registry.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.IdleTimeout,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without session mirror")
		} else {
			mirror = m
		}
	}
	sessions := registry.New(registry.Config{
		MaxSessions:  cfg.Session.MaxSessions,
		IdleTimeout:  cfg.Session.IdleTimeout,
		ReapInterval: cfg.Session.ReapInterval,
	}, mirror)

	var archiver pipeline.Archiver
	var archive *storage.Archive
	if cfg.Archive.Enabled {
		archive, err = newArchive(ctx, cfg.Archive)
		if err != nil {
			log.Warn().Err(err).Msg("Debug archive unavailable, continuing without it")
		} else {
			archiver = archive
		}
	}

	// Sessions outlive the signal context so shutdown can release them in order.
	sessionCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	wsHandler := ws.NewHandler(sessionCtx, ws.Config{
		AllowedOrigins:    cfg.Service.AllowedOrigins,
		DefaultEncoding:   cfg.STT.AudioEncoding,
		MaxFrameBytes:     cfg.Session.MaxFrameBytes,
		WriteQueue:        cfg.Session.WriteQueue,
		PingInterval:      cfg.Session.PingInterval,
		STTTimeout:        cfg.STT.Timeout,
		ClassifierTimeout: cfg.Classifier.Timeout,
	}, ws.Deps{
		Registry:    sessions,
		Transcriber: transcriber,
		Classifier:  clf,
		Mapper:      verdict.NewMapper(verdict.PolicyFromConfig(cfg.Verdict)),
		Validator:   schema.New(),
		Publisher:   publisher,
		Archiver:    archiver,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apphttp.NewRouter(application, wsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	obsServer := observability.NewServer(":"+cfg.Observability.MetricsPort, application.Ready)
	obsServer.Start()

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen for gRPC")
	}
	grpcServer := grpcapi.New(metrics.DefaultMetrics)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	go sessions.StartReaper(sessionCtx)

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("stt", stt.ProviderName(transcriber)).
			Str("classifier", classifier.ProviderName(clf)).
			Msg("Scam Guard service listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}
	grpcServer.SetServing(true)

	<-ctx.Done()

	log.Info().Msg("Shutdown signal received")
	application.Shutdown()
	grpcServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by http.Server; the
	// registry releases them.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	sessions.Shutdown(shutdownCtx)
	cancelSessions()

	if archive != nil {
		archive.Close()
	}
	if err := publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing Kafka publisher")
	}
	if c, ok := transcriber.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing transcriber")
		}
	}

	grpcServer.Shutdown(shutdownCtx)
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Observability server shutdown error")
	}
	log.Info().Msg("Scam Guard service stopped")
}

func newTranscriber(ctx context.Context, cfg config.STTConfig) (stt.Transcriber, error) {
	switch cfg.Provider {
	case "", "mock":
		return mockstt.New(), nil
	case "google":
		return googlestt.New(ctx, googlestt.Config{
			LanguageCode:    cfg.LanguageCode,
			SampleRateHz:    cfg.SampleRateHz,
			AudioEncoding:   cfg.AudioEncoding,
			Diarization:     cfg.Diarization,
			MinSpeakerCount: cfg.MinSpeakerCount,
			MaxSpeakerCount: cfg.MaxSpeakerCount,
		})
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}

func newClassifier(ctx context.Context, cfg config.ClassifierConfig) (classifier.Classifier, error) {
	switch cfg.Provider {
	case "", "mock":
		return mockclassifier.New(), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, errors.New("anthropic classifier requires CLASSIFIER_API_KEY or ANTHROPIC_API_KEY")
		}
		return anthropicclassifier.New(anthropicclassifier.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		}), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, errors.New("gemini classifier requires CLASSIFIER_API_KEY or GEMINI_API_KEY")
		}
		return geminiclassifier.New(ctx, geminiclassifier.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig) (*storage.Archive, error) {
	a, err := storage.NewArchive(storage.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := a.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
