package sms

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const maxResponseBody = 64 << 10

// Stats are running totals since the gateway was built.
type Stats struct {
	Attempts  int64
	Delivered int64
	Failed    int64
}

// Gateway sends codes by SMS, either for real through a Provider or into the
// MockSender outbox.
type Gateway struct {
	cfg      Config
	provider Provider
	pool     *clientPool
	mock     *MockSender
	ins      instrument.Instrumentation
	attempts metric.Int64Counter

	nAttempts  *atomic.Int64
	nDelivered *atomic.Int64
	nFailed    *atomic.Int64
}

// New builds a gateway. In live mode an unusable configuration is rejected
// with an error wrapping entity.ErrConfig.
func New(cfg Config, ins instrument.Instrumentation, uuid uid.StringID) (*Gateway, error) {
	cfg = cfg.withDefaults()

	attempts, err := ins.Meter("phoneotp.outbound.sms").Int64Counter("phoneotp.delivery.attempts")
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:        cfg,
		ins:        ins,
		attempts:   attempts,
		nAttempts:  atomic.NewInt64(0),
		nDelivered: atomic.NewInt64(0),
		nFailed:    atomic.NewInt64(0),
	}

	if cfg.MockMode {
		g.mock = NewMockSender(uuid)
		return g, nil
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if g.provider, err = newProvider(cfg); err != nil {
		return nil, errors.Join(entity.ErrConfig, err)
	}
	if g.pool, err = newClientPool(cfg); err != nil {
		return nil, err
	}

	return g, nil
}

// Mock returns the outbox in mock mode, nil otherwise.
func (g *Gateway) Mock() *MockSender {
	return g.mock
}

func (g *Gateway) Stats() Stats {
	return Stats{
		Attempts:  g.nAttempts.Load(),
		Delivered: g.nDelivered.Load(),
		Failed:    g.nFailed.Load(),
	}
}

// Close drops idle provider connections.
func (g *Gateway) Close() error {
	if g.pool != nil {
		g.pool.close()
	}
	return nil
}

// Send delivers code to phone. Transient failures are retried with capped
// exponential backoff up to MaxRetry attempts in total; terminal failures and
// cancellation end the loop at once. It never panics and always returns the
// last error seen.
func (g *Gateway) Send(ctx context.Context, phone, code string) entity.DeliveryResult {
	if g.mock != nil {
		g.record(ctx, 1, entity.ErrorClassNone, -1)
		g.nDelivered.Inc()
		return g.mock.Send(ctx, phone, code)
	}

	ctx, span := g.ins.Tracer("phoneotp.outbound.sms").Start(ctx, "Send",
		trace.WithAttributes(attribute.String("sms.provider", g.provider.Name())))
	defer span.End()

	b := retry.NewExponential(g.cfg.BackoffBase)
	b = retry.WithCappedDuration(g.cfg.BackoffMax, b)
	b = retry.WithMaxRetries(uint64(g.cfg.MaxRetry-1), b) //nolint:gosec // MaxRetry >= 1

	var (
		n     int
		msgID string
		last  error
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		n++
		id, err := g.attempt(ctx, n, phone, code)
		if err == nil {
			msgID = id
			return nil
		}
		last = err

		if ctx.Err() == nil && ClassOf(err) == entity.ErrorClassTransient {
			slog.WarnContext(ctx, "sms attempt failed, will retry", "attempt", n, "phone", phone, "error", err)
			return retry.RetryableError(err)
		}

		return err
	})

	if err == nil {
		g.nDelivered.Inc()
		span.SetAttributes(attribute.Int("sms.attempts", n))
		return entity.DeliveryResult{Success: true, MessageID: msgID, Attempts: n}
	}

	if last == nil || ctx.Err() != nil {
		last = errors.Join(ctx.Err(), last)
	}
	class := ClassOf(last)
	if ctx.Err() != nil {
		class = entity.ErrorClassTransient
	}

	g.nFailed.Inc()
	span.RecordError(last)
	span.SetStatus(codes.Error, last.Error())
	slog.ErrorContext(ctx, "sms delivery failed", "phone", phone, "attempts", n, "class", class.String(), "error", last)

	return entity.DeliveryResult{Class: class, Attempts: n, Err: last}
}

func (g *Gateway) attempt(ctx context.Context, n int, phone, code string) (string, error) {
	ctx, span := g.ins.Tracer("phoneotp.outbound.sms").Start(ctx, "Attempt",
		trace.WithAttributes(attribute.Int("sms.attempt", n)))
	defer span.End()

	id, idx, err := g.do(ctx, phone, code)
	class := ClassOf(err)
	g.record(ctx, n, class, idx)
	span.SetAttributes(attribute.Int("sms.proxy_index", idx), attribute.String("sms.class", class.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return id, err
}

func (g *Gateway) do(ctx context.Context, phone, code string) (string, int, error) {
	name := g.provider.Name()

	client, idx, err := g.pool.pick()
	if err != nil {
		return "", idx, &Error{Class: entity.ErrorClassConfig, Provider: name, Msg: "proxy", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := g.provider.NewRequest(ctx, phone, code)
	if err != nil {
		return "", idx, &Error{Class: entity.ErrorClassTerminal, Provider: name, Msg: "build request", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", idx, transportError(name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", idx, transportError(name, err)
	}

	id, err := g.provider.Parse(resp.StatusCode, body)
	return id, idx, err
}

func (g *Gateway) record(ctx context.Context, n int, class entity.ErrorClass, idx int) {
	g.nAttempts.Inc()
	g.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("attempt", n),
		attribute.String("class", class.String()),
		attribute.Bool("proxied", idx >= 0),
	))
}
