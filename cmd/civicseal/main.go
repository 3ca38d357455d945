package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Dshubhambadola/CivicSeal/app"
	"github.com/Dshubhambadola/CivicSeal/cmd/flags"
	"github.com/Dshubhambadola/CivicSeal/common"
	"github.com/Dshubhambadola/CivicSeal/httpserver"
	"github.com/Dshubhambadola/CivicSeal/index"
)

func main() {
	cliApp := &cli.App{
		Name:           common.PackageName,
		Usage:          "Notarize documents on an Ethereum ledger with custodial keys",
		Version:        common.Version,
		DefaultCommand: "serve",
		Flags:          flags.CommonFlags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Flags:  append(append([]cli.Flag{}, flags.IndexFlags...), flags.ServeFlags...),
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply index migrations and exit",
				Flags:  flags.IndexFlags,
				Action: migrate,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.ConfigureApp(cCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start services", "err", err)
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Error("Failed to close services", "err", err)
		}
	}()

	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), services.Handler, services.Metrics)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()
	logger.Info("Server is running, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

func migrate(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	ctx, cancel := context.WithCancel(cCtx.Context)
	defer cancel()

	// Open applies pending migrations.
	idx, err := index.Open(ctx, cCtx.String(flags.IndexDSNFlag.Name), logger)
	if err != nil {
		logger.Error("Migration failed", "err", err)
		return err
	}
	defer idx.Close()

	logger.Info("Index is up to date", "dialect", string(idx.Dialect()))
	return nil
}
