package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/config"
	"github.com/NuZard84/go-typerace-socket/internal/db"
	"github.com/NuZard84/go-typerace-socket/internal/events"
	"github.com/NuZard84/go-typerace-socket/internal/game"
	"github.com/NuZard84/go-typerace-socket/internal/gateway"
	"github.com/NuZard84/go-typerace-socket/internal/handlers"
	"github.com/NuZard84/go-typerace-socket/internal/manager"
	"github.com/NuZard84/go-typerace-socket/internal/passage"
)

const mongoPassageLimit = 500

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := config.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := loadCatalog(ctx, cfg)

	publisher := newPublisher(ctx, cfg)
	dispatcher := events.NewDispatcher(publisher, 1024)

	registry := manager.NewRegistry(
		manager.WithCapacity(cfg.MaxPlayers),
		manager.WithCodeLength(cfg.RoomCodeLength),
		manager.WithMaxRooms(cfg.MaxRooms),
	)

	hub := handlers.NewHub(handlers.HubConfig{
		WriteTimeout:    cfg.WSWriteTimeout,
		ReadTimeout:     cfg.WSReadTimeout,
		PingInterval:    cfg.WSPingInterval,
		MaxMessageSize:  cfg.WSMaxMessageSize,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		AllowedOrigins:  cfg.AllowedOrigins,
	})

	gw := gateway.New(registry, hub,
		gateway.WithEvaluator(game.NewEvaluator(cfg.FinishRule)),
		gateway.WithPassages(catalog),
		gateway.WithEmitter(dispatcher),
		gateway.WithStartPolicy(cfg.StartPolicy),
		gateway.WithMinPlayers(cfg.MinPlayers),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		gw.Run(ctx)
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handlers.NewHandler(gw, hub).Routes(cfg.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("start_policy", cfg.StartPolicy).
			Str("finish_rule", string(cfg.FinishRule)).
			Int("passages", catalog.Len()).
			Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	// hijacked websocket connections are not closed by Shutdown
	hub.CloseAll()

	cancel()
	wg.Wait()

	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}

	log.Info().Msg("typerace server shutdown complete")
}

// loadCatalog gathers passages from the optional file and MongoDB sources.
// Without either, the built-in passages are used.
func loadCatalog(ctx context.Context, cfg *config.Config) *passage.Catalog {
	var texts []string

	if cfg.PassagesFile != "" {
		fromFile, err := passage.LoadFile(cfg.PassagesFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PassagesFile).Msg("failed to load passages")
		}
		texts = append(texts, fromFile...)
	}

	if cfg.MongoURI != "" {
		store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to MongoDB")
		}
		defer store.Close(context.Background())

		fromStore, err := passage.LoadStore(ctx, store, mongoPassageLimit)
		if err != nil {
			log.Error().Err(err).Msg("failed to load passages from MongoDB")
		}
		log.Info().Int("passages", len(fromStore)).Msg("loaded passages from MongoDB")
		texts = append(texts, fromStore...)
	}

	return passage.NewCatalog(texts...)
}

func newPublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	if cfg.NATSURL == "" {
		log.Info().Msg("NATS_URL not set, race events are only logged")
		return events.LogPublisher{}
	}

	jsCfg := events.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	jsCfg.StreamName = cfg.NATSStream
	jsCfg.SubjectPrefix = cfg.NATSSubjectPrefix

	publisher, err := events.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		log.Fatal().Err(err).Str("nats_url", cfg.NATSURL).Msg("failed to connect event publisher")
	}
	return publisher
}
