package main

import (
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/berniyo/daraja-gateway/internal/config"
	"github.com/berniyo/daraja-gateway/internal/handler"
	"github.com/berniyo/daraja-gateway/internal/logging"
	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		logging.New("info", "json", "daraja-lambda").WithError(err).Fatal("failed to load configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "daraja-lambda")

	mcfg, err := cfg.Mpesa()
	if err != nil {
		logger.WithError(err).Fatal("invalid M-Pesa configuration")
	}
	client := mpesa.NewClient(mcfg,
		mpesa.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		mpesa.WithLogger(logger),
	)
	tools := handler.NewTools(client,
		handler.WithLogger(logger),
		handler.WithSecrets(append(mcfg.Secrets(), cfg.NotifySecret)...),
		handler.WithRateLimit(cfg.STKPushRateLimit),
	)

	opts := []handler.ProcessorOption{handler.WithProcessorLogger(logger)}
	if cfg.NotifyURL != "" {
		notifier, err := handler.NewNotifier(cfg.NotifyURL, cfg.NotifySecret, nil)
		if err != nil {
			logger.WithError(err).Fatal("failed to configure outcome notifier")
		}
		opts = append(opts, handler.WithOutcomeSender(notifier))
	}
	processor := handler.NewProcessor(tools, opts...)

	lambda.Start(processor.Handle)
}
