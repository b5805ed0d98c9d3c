package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ross1116/pokebattle/client"
	"github.com/ross1116/pokebattle/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	serverHost := flag.String("host", "localhost", "Server host address")
	serverPort := flag.String("port", "9090", "Server port")
	username := flag.String("user", "", "Your username")
	level := flag.String("log", "warn", "Log level")
	flag.Parse()

	if *username == "" {
		fmt.Println("Please provide a username with -user flag")
		flag.Usage()
		os.Exit(1)
	}
	if err := logging.Setup(*level, true, nil); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{
		ServerHost: *serverHost,
		ServerPort: *serverPort,
		Username:   *username,
	}, os.Stdout)

	fmt.Printf("Connecting to server %s:%s as %s...\n", *serverHost, *serverPort, *username)
	if err := c.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	fmt.Println("Connected successfully!")

	if err := c.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("client stopped")
	}
	fmt.Println("\nDisconnecting...")
}
