package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
	"github.com/shandysiswandi/phoneverify/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/otp"
	"github.com/shandysiswandi/phoneverify/internal/pkg/phone"
	"github.com/shandysiswandi/phoneverify/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const (
	DefaultTTL           = 300 * time.Second
	DefaultSweepInterval = 60 * time.Second
)

type PhoneVerifiedEvent struct {
	Phone       string
	ChallengeID int64
	VerifiedAt  time.Time
}

type repoMessaging interface {
	PublishPhoneVerified(ctx context.Context, msg PhoneVerifiedEvent) error
}

type repoRegistry interface {
	Issue(phone, code string, ttl time.Duration) (entity.Record, error)
	Pending(phone string) (entity.Record, bool)
	Consume(phone, code string) entity.ConsumeResult
	Sweep() int
}

type repoLimiter interface {
	Allow(phone string) (time.Duration, bool)
	Sweep() int
}

type repoGateway interface {
	Send(ctx context.Context, phone, code string) entity.DeliveryResult
}

type normalizer interface {
	Normalize(raw string) string
}

type Usecase struct {
	registry      repoRegistry
	limiter       repoLimiter
	gateway       repoGateway
	repoMessaging repoMessaging
	normalizer    normalizer
	generator     otp.Generator
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	locks *keyedMutex
	swept *atomic.Int64

	requests      metric.Int64Counter
	verifications metric.Int64Counter
	sweptCounter  metric.Int64Counter
}

type Dependency struct {
	Registry      repoRegistry
	Limiter       repoLimiter
	Gateway       repoGateway
	RepoMessaging repoMessaging
	Normalizer    normalizer
	Generator     otp.Generator
	Validator     validator.Validator
	Config        config.Config
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("phoneotp.usecase")

	return &Usecase{
		registry:      dep.Registry,
		limiter:       dep.Limiter,
		gateway:       dep.Gateway,
		repoMessaging: dep.RepoMessaging,
		normalizer:    dep.Normalizer,
		generator:     dep.Generator,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		locks:         newKeyedMutex(),
		swept:         atomic.NewInt64(0),
		requests:      counter(meter, "phoneotp.requests"),
		verifications: counter(meter, "phoneotp.verifications"),
		sweptCounter:  counter(meter, "phoneotp.swept"),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("phoneotp.usecase").Start(ctx, name)
}

func (s *Usecase) ttl() time.Duration {
	if ttl := s.cfg.GetSecond("modules.phoneotp.ttl_seconds"); ttl > 0 {
		return ttl
	}
	return DefaultTTL
}

// foldDigits maps a code typed in any digit script to the ASCII form it was
// issued in.
func foldDigits(code string) string {
	return phone.Digits(code)
}

func counter(meter metric.Meter, name string) metric.Int64Counter {
	c, err := meter.Int64Counter(name)
	if err != nil {
		slog.Warn("failed to create metric counter, using noop", "name", name, "error", err)
		return metricnoop.Int64Counter{}
	}
	return c
}

func count(ctx context.Context, c metric.Int64Counter, outcome string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
