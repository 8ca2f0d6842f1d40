package phoneotp

import (
	"context"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/inbound"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/outbound/mq"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/outbound/registry"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/outbound/sms"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/usecase"
	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
	"github.com/shandysiswandi/phoneverify/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneverify/internal/pkg/hash"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneverify/internal/pkg/otp"
	"github.com/shandysiswandi/phoneverify/internal/pkg/phone"
	"github.com/shandysiswandi/phoneverify/internal/pkg/router"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
	"github.com/shandysiswandi/phoneverify/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// Module is the wired phone verification feature.
type Module struct {
	Usecase *usecase.Usecase
	Gateway *sms.Gateway
}

// New builds the module, registers its endpoints and starts the sweeper. A
// live SMS configuration that cannot work is returned as an error wrapping
// entity.ErrConfig.
func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	cfg := dep.Config

	gateway, err := sms.New(SMSConfig(cfg), dep.Instrument, dep.UUID)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.Config{
		Clock:       dep.Clock,
		Hash:        dep.HMAC,
		UID:         dep.UID,
		MaxAttempts: cfg.GetInt("modules.phoneotp.max_attempts"),
	})
	limiter := registry.NewSendLimiter(dep.Clock,
		cfg.GetSecond("modules.phoneotp.send_window_seconds"),
		cfg.GetInt("modules.phoneotp.max_sends_per_window"),
	)

	uc := usecase.New(usecase.Dependency{
		Registry:      reg,
		Limiter:       limiter,
		Gateway:       gateway,
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument, cfg.GetString("modules.phoneotp.events_topic")),
		Normalizer: phone.NewNormalizer(
			cfg.GetString("modules.phoneotp.default_country_code"),
			cfg.GetInt("modules.phoneotp.national_length"),
		),
		Generator:  otp.NewNumeric(cfg.GetInt("modules.phoneotp.code_digits")),
		Validator:  dep.Validator,
		Config:     cfg,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
		Goroutine:  dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	uc.StartSweeper(dep.Ctx)

	return &Module{Usecase: uc, Gateway: gateway}, nil
}

// Close releases the SMS transport.
func (m *Module) Close() error {
	return m.Gateway.Close()
}

// SMSConfig reads modules.phoneotp.sms.* into a gateway config.
func SMSConfig(cfg config.Config) sms.Config {
	const prefix = "modules.phoneotp.sms."

	return sms.Config{
		MockMode:         cfg.GetBool(prefix + "mock_mode"),
		Provider:         cfg.GetString(prefix + "provider"),
		BaseURL:          cfg.GetString(prefix + "base_url"),
		APIKey:           cfg.GetString(prefix + "api_key"),
		Template:         cfg.GetString(prefix + "template"),
		Sender:           cfg.GetString(prefix + "sender"),
		Timeout:          cfg.GetSecond(prefix + "timeout_seconds"),
		MaxRetry:         cfg.GetInt(prefix + "max_retry"),
		BackoffBase:      cfg.GetMillisecond(prefix + "backoff_base_ms"),
		BackoffMax:       cfg.GetMillisecond(prefix + "backoff_max_ms"),
		UseProxy:         cfg.GetBool(prefix + "use_proxy"),
		ProxyPoolMin:     cfg.GetInt(prefix + "proxy_pool_min"),
		ProxyPoolMax:     cfg.GetInt(prefix + "proxy_pool_max"),
		ProxyURLTemplate: cfg.GetString(prefix + "proxy_url_template"),
		CAFile:           cfg.GetString(prefix + "ca_file"),
	}
}
