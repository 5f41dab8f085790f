package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"hue-bridge-client/internal/adapters/output/httpclient"
	"hue-bridge-client/internal/adapters/output/multicast"
	"hue-bridge-client/internal/adapters/output/persistence"
	"hue-bridge-client/internal/config"
	"hue-bridge-client/internal/domain/service"
	"hue-bridge-client/internal/logging"
	"hue-bridge-client/internal/ports"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

const usage = `usage: huectl [-config file] [-log-level level] <command> [args]

commands:
  discover                 list bridges on the network
  pair [-bridge addr]      pair with a bridge (press its link button)
  bridges                  list paired bridges
  forget <bridge>          drop a stored pairing
  lights [-bridge b]       list lights
  light [-bridge b] <id>   show one light
  set [-bridge b] <id> [-on|-off] [-bri n] [-hue n] [-sat n] [-ct n]
      [-transition n] [-alert a] [-effect e]
      [-percent p] [-kelvin k] [-degrees d]
  config [-bridge b]       show bridge configuration
`

func main() {
	var configPath, level string
	flag.StringVar(&configPath, "config", "huectl.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "huectl.yaml", "Path to configuration file (shorthand)")
	flag.StringVar(&level, "log-level", "", "Override the configured log level")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level != "" {
		cfg.Log.Level = level
	}
	logging.Setup(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI(cfg, os.Stdout)
	if err := c.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

type cli struct {
	cfg       *config.Config
	out       io.Writer
	http      *httpclient.Client
	datagrams ports.DatagramTransport
	creds     *service.CredentialService
}

func newCLI(cfg *config.Config, out io.Writer) *cli {
	datagrams := multicast.NewTransport()
	datagrams.Interface = cfg.Discovery.Interface
	return &cli{
		cfg:       cfg,
		out:       out,
		http:      httpclient.NewClient(cfg.HTTP.Timeout.Duration()),
		datagrams: datagrams,
		creds:     service.NewCredentialService(persistence.NewJSONCredentialRepository(cfg.Credentials.Path)),
	}
}
