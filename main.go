package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"neuroquest/internal/celebrate"
	"neuroquest/internal/evolab"
	"neuroquest/internal/progress"
	"neuroquest/internal/quest"
	"neuroquest/internal/scheduler"
	"neuroquest/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	log := newLogger()

	dbPath := envOr("NEUROQUEST_DB", "./neuroquest.db")
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("failed to open database")
	}
	defer st.Close()

	templates, err := quest.DefaultTemplates()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load quest templates")
	}
	stages, err := progress.DefaultStages()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load evolution stages")
	}
	badges, err := progress.DefaultBadges()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load badge catalog")
	}

	seed := time.Now().UnixNano()
	if s := os.Getenv("QUEST_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			seed = v
		}
	}

	dispatcher := celebrate.New(celebrate.DefaultQuestDelay)
	gen := quest.NewGenerator(templates, rand.New(rand.NewSource(seed)), nil)
	svc := progress.NewService(st, gen, dispatcher, stages, badges, nil, log)
	lab := evolab.New(evolab.DefaultConfig(), rand.New(rand.NewSource(seed+1)))

	server := NewServer(st, svc, lab, log)
	dispatcher.Subscribe(server.BroadcastCelebration)

	sched := scheduler.New(svc, server, log)
	sched.Start()
	defer sched.Stop()

	port := envOr("PORT", "8080")
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().Str("port", port).Msg("server starting")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		level = lvl
	}

	var w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
