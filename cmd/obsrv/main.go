package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/api"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/config"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/handlers"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/market"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/server"
)

var version = server.DefaultVersion

func main() {
	os.Exit(run(os.Args[1:]))
}

// run starts the server and blocks until SIGINT or SIGTERM. It returns the
// process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("obsrv", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "path to the JSON configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		slog.Error("unexpected arguments", "args", fs.Args())
		fs.Usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", "err", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	svc := handlers.New(market.New(), nil)
	reg, err := api.NewRegistry(svc.Routes()...)
	if err != nil {
		logger.Error("building route table", "err", err)
		return 1
	}

	srv, err := server.Serve(server.Config{
		Addr:         cfg.Addr(),
		Name:         handlers.Name,
		Version:      version,
		MaxBodyBytes: cfg.BodyLimit(),
		Logger:       logger,
		AccessLog:    os.Stdout,
	}, reg)
	if err != nil {
		logger.Error("starting server", "err", err)
		return 1
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", "signal", sig.String())
	if err := srv.Close(); err != nil {
		logger.Warn("closing listener", "err", err)
	}
	return 0
}
