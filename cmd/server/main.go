package main

import (
	"log"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/berniyo/daraja-gateway/internal/config"
	"github.com/berniyo/daraja-gateway/internal/handler"
	"github.com/berniyo/daraja-gateway/internal/logging"
	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

var version = "dev"

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		logging.New("info", "text", handler.ServerName).WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, handler.ServerName)

	mcfg, err := cfg.Mpesa()
	if err != nil {
		logger.WithError(err).Error("invalid M-Pesa configuration")
		os.Exit(1)
	}
	client := mpesa.NewClient(mcfg,
		mpesa.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		mpesa.WithLogger(logger),
	)
	tools := handler.NewTools(client,
		handler.WithLogger(logger),
		handler.WithSecrets(mcfg.Secrets()...),
		handler.WithRateLimit(cfg.STKPushRateLimit),
	)

	s := handler.NewMCPServer(tools, version)

	logger.WithField("version", version).Info("serving tools on stdio")
	errLog := log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0)
	if err := server.ServeStdio(s, server.WithErrorLogger(errLog)); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
