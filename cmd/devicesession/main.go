package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/infrastructure/config"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	port := flag.String("port", cfg.Server.Port, "Server port")
	devices := flag.String("devices", cfg.Device.DevicesFile, "Device inventory file (.yaml or .toml)")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	logLevel := flag.String("log-level", cfg.Device.LogLevel, "Default device log level (INFO or FULL)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Device.DevicesFile = *devices
	cfg.Device.LogLevel = *logLevel
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.NewServer(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	logger := srv.Logger()

	if cfg.Device.DevicesFile != "" {
		inv, err := config.LoadDevices(cfg.Device.DevicesFile)
		if err != nil {
			logger.Fatal("Failed to load devices", zap.Error(err))
		}
		if err := srv.AttachDevices(context.Background(), inv); err != nil {
			logger.Warn("Some devices were not attached", zap.Error(err))
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}
}
