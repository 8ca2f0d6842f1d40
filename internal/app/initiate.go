package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp"
	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
	"github.com/shandysiswandi/phoneverify/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneverify/internal/pkg/hash"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneverify/internal/pkg/router"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
	"github.com/shandysiswandi/phoneverify/internal/pkg/validator"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const envPrefix = "PHONEOTP"

const scopePubSub = "https://www.googleapis.com/auth/pubsub"

func defaults() map[string]any {
	return map[string]any{
		"app.tz":                                      "UTC",
		"app.server.http.address":                     ":8080",
		"app.server.http.read_timeout_seconds":        10,
		"app.server.http.read_header_timeout_seconds": 5,
		"app.server.http.write_timeout_seconds":       90,
		"app.server.http.idle_timeout_seconds":        60,
		"app.server.max_goroutine":                    100,
		"app.server.shutdown_timeout_seconds":         10,
		"app.server.rate_limit.rps":                   0,
		"app.server.trust_proxy_headers":              false,
		"instrument.enabled":                          false,
		"instrument.service_name":                     "phoneverify",
		"instrument.log_level":                        "info",
		"instrument.log_mask_fields":                  []string{"code", "api_key", "authorization", "token"},
		"instrument.metric_interval_seconds":          15,
		"messaging.driver":                            messaging.DriverNone,
		"modules.phoneotp.enabled":                    true,
		"modules.phoneotp.default_country_code":       "98",
		"modules.phoneotp.national_length":            10,
		"modules.phoneotp.code_digits":                6,
		"modules.phoneotp.ttl_seconds":                300,
		"modules.phoneotp.max_attempts":               5,
		"modules.phoneotp.sweep_interval_seconds":     60,
		"modules.phoneotp.send_window_seconds":        3600,
		"modules.phoneotp.max_sends_per_window":       5,
		"modules.phoneotp.sms.mock_mode":              false,
		"modules.phoneotp.sms.provider":               "lookup",
		"modules.phoneotp.sms.timeout_seconds":        15,
		"modules.phoneotp.sms.max_retry":              3,
		"modules.phoneotp.sms.backoff_base_ms":        500,
		"modules.phoneotp.sms.backoff_max_ms":         4000,
		"modules.phoneotp.sms.use_proxy":              false,
	}
}

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.NewViper(path, config.WithDefaults(defaults()), config.WithEnvPrefix(envPrefix))
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	secret := a.config.GetString("modules.phoneotp.code_secret")
	if secret == "" {
		// Digests only live as long as the process, so a per-boot key is enough.
		secret = a.uuid.Generate() + a.uuid.Generate()
		slog.Warn("modules.phoneotp.code_secret is empty, using a per-process key")
	}
	a.hmac = hash.NewHMACSHA256(secret)

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	var pubsubOptions []option.ClientOption
	if driver == messaging.DriverGooglePubSub {
		pubsubOptions = a.pubsubClientOptions()
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("messaging.nsq.producer_addr"),
			ProducerConfig: func() *nsq.Config {
				cfg := nsq.NewConfig()
				cfg.DialTimeout = a.config.GetSecond("messaging.nsq.producer_config.dial_timeout_seconds")
				cfg.ReadTimeout = a.config.GetSecond("messaging.nsq.producer_config.read_timeout_seconds")
				cfg.WriteTimeout = a.config.GetSecond("messaging.nsq.producer_config.write_timeout_seconds")
				return cfg
			}(),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      a.config.GetArray("messaging.kafka.brokers"),
			WriteTimeout: a.config.GetSecond("messaging.kafka.write_timeout_seconds"),
			RequiredAcks: kafka.RequiredAcks(a.config.GetInt("messaging.kafka.required_acks")),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOptions,
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) pubsubClientOptions() []option.ClientOption {
	var opts []option.ClientOption

	if a.config.GetBool("messaging.pubsub.without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.credentials_file")); v != "" {
		// #nosec G304 -- path is from trusted config file.
		credsJSON, err := os.ReadFile(v)
		if err != nil {
			slog.Error("failed to read pubsub credentials file", "error", err)
			os.Exit(1)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, scopePubSub)
		if err != nil {
			slog.Error("failed to parse pubsub credentials file", "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}

	return opts
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", router.HeaderCorrelationID, router.HeaderRequestID},
		ExposedHeaders: []string{"Retry-After", router.HeaderCorrelationID},
	}).Handler(a.router)

	// A request may wait on every SMS attempt and backoff.
	writeTimeout := a.config.GetSecond("app.server.http.write_timeout_seconds")
	if bound := phoneotp.SMSConfig(a.config).LatencyBound() + 5*time.Second; writeTimeout > 0 && writeTimeout < bound {
		slog.Warn("http write timeout is below the sms latency bound, raising it",
			"configured", writeTimeout.String(), "bound", bound.String())
		writeTimeout = bound
	}

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      writeTimeout,
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "PhoneOTP",
			fn: func(context.Context) error {
				if a.phoneotp != nil {
					return a.phoneotp.Close()
				}
				return nil
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
