package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ross1116/pokebattle/internal/config"
	"github.com/ross1116/pokebattle/internal/logging"
	"github.com/ross1116/pokebattle/server"
	"github.com/rs/zerolog/log"
)

func main() {
	path := flag.String("config", "", "YAML config file")
	host := flag.String("host", "", "Listen host (overrides config)")
	port := flag.String("port", "", "Listen port (overrides config)")
	seed := flag.Uint64("seed", 0, "Battle seed, 0 for a random one")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *seed != 0 {
		cfg.Battle.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty, nil); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.Addr()).Msg("starting server")
	if err := server.New(cfg, nil).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}
