package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Pandentia/docmail/docmail"
	"github.com/Pandentia/docmail/docmail/delivery"
	"github.com/Pandentia/docmail/docmail/events"
	"github.com/Pandentia/docmail/docmail/gateway"
	"github.com/Pandentia/docmail/docmail/provider"
	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	app := kingpin.New("docmail-gateway", "Letter upload gateway for Docmail")

	providerURL := app.Flag("provider-url", "Base URL of the document-delivery provider").Envar("DOC_SMITH_URL").Required().URL()
	email := app.Flag("email", "Provider account email").Envar("DOC_SMITH_EMAIL").Required().String()
	password := app.Flag("password", "Provider account password").Envar("DOC_SMITH_PASSWORD").Required().String()
	softwareID := app.Flag("software-id", "Provider software identifier").Envar("DOC_SMITH_SOFTWARE_ID").Required().String()

	host := app.Flag("host", "The host to bind to").Envar("HOST").Default("::").String()
	port := app.Flag("port", "The port to listen on").Envar("PORT").Short('P').Default(strconv.Itoa(docmail.DefaultPort)).Uint16()
	timeout := app.Flag("timeout", "Timeout for each provider call").Envar("PROVIDER_TIMEOUT").Default(docmail.DefaultProviderTimeout.String()).Duration()
	maxUpload := app.Flag("max-upload", "Maximum upload request size").Envar("MAX_UPLOAD_SIZE").Default("20MB").Bytes()

	AMQPURI := app.Flag("amqp-uri", "The AMQP URI to publish letter events to").Envar("AMQP_URI").Short('u').String()
	metrics := app.Flag("metrics", "Exposes Prometheus metrics at /metrics").Envar("METRICS_ENABLED").Bool()

	verbose := app.Flag("verbose", "Enables debug logging").Short('v').Bool()
	pretty := app.Flag("pretty", "Enables pretty logging").Short('p').Bool()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	if *pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	creds := docmail.Credentials{
		Email:      *email,
		Password:   *password,
		SoftwareID: *softwareID,
	}
	logger.Info().Object("account", creds).Str("provider", (*providerURL).String()).Msg("Configuration loaded")

	var notifier gateway.Notifier
	if *AMQPURI != "" {
		publisher, err := events.Dial(*AMQPURI, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error connecting to message broker.")
		}
		defer publisher.Close()
		notifier = publisher
	}

	client := provider.New((*providerURL).String(), *timeout)
	api := gateway.New(gateway.Config{
		Bind:          net.JoinHostPort(*host, strconv.Itoa(int(*port))),
		Credentials:   creds,
		MaxUploadSize: int64(*maxUpload),
		Metrics:       *metrics,
	}, client, delivery.New(client, logger), notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Error running gateway API.")
	}
}
