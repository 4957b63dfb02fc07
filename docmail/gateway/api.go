package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Pandentia/docmail/docmail"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Config describes the gateway's startup configuration. It is not modified after New.
type Config struct {
	Bind          string // address to listen on, for instance [::]:5000
	Credentials   docmail.Credentials
	MaxUploadSize int64 // maximum upload request body in bytes
	Metrics       bool  // expose /metrics
}

// Deliverer sends one validated letter through the provider.
type Deliverer interface {
	Deliver(ctx context.Context, token docmail.Token, letter docmail.Letter) (docmail.Receipt, error)
}

// Notifier receives the outcome of every upload that reached the provider.
type Notifier interface {
	Notify(event docmail.LetterEvent)
}

// API describes the gateway HTTP API.
type API struct {
	Logger zerolog.Logger

	config    Config
	provider  docmail.Provider
	deliverer Deliverer
	notifier  Notifier
	metrics   *metrics
}

// New creates an API. notifier may be nil.
func New(config Config, provider docmail.Provider, deliverer Deliverer, notifier Notifier, logger zerolog.Logger) *API {
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = docmail.DefaultMaxUploadSize
	}
	return &API{
		Logger:    logger.With().Str("module", "gateway").Logger(),
		config:    config,
		provider:  provider,
		deliverer: deliverer,
		notifier:  notifier,
		metrics:   newMetrics(),
	}
}

// Handler builds the gin engine serving the API.
func (api *API) Handler() *gin.Engine {
	r := gin.New()

	// metrics wraps recovery so requests that panic are still counted
	r.Use(api.metrics.middleware(), api.recovery(), headerPolicy(), corsPolicy(), api.requestContext())

	r.POST("/upload", api.uploadHandler)
	r.GET("/sent-letters", api.sentLettersHandler)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if api.config.Metrics {
		r.GET("/metrics", gin.WrapH(api.metrics.handler()))
	}

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (api *API) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:              api.config.Bind,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		api.Logger.Info().Str("bind", api.config.Bind).Msg("Gateway listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	api.Logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestContext tags the request with an ID and puts a logger carrying it into the request context.
func (api *API) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Header(requestIDHeader, id)

		logger := api.Logger.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func (api *API) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		api.Logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": docmail.MsgInternalError})
	})
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get(requestIDHeader)
}

func (api *API) notify(event docmail.LetterEvent) {
	if api.notifier == nil {
		return
	}
	api.notifier.Notify(event)
}
