package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/goerror"
)

type RequestCodeInput struct {
	Phone string `json:"phone" validate:"required,phone"`
}

type RequestCodeOutput struct {
	Phone     string
	ExpiresIn time.Duration
	MessageID string
}

func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) (*RequestCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	phone := s.normalizer.Normalize(in.Phone)
	if phone == "" {
		return nil, goerror.NewInvalidInput(nil, "phone", "phone must be a valid phone number")
	}

	unlock := s.locks.Lock(phone)
	defer unlock()

	if rec, ok := s.registry.Pending(phone); ok {
		wait := rec.Remaining(s.clock.Now())
		slog.WarnContext(ctx, "code already pending for phone", "phone", phone, "wait", wait.String())
		count(ctx, s.requests, "pending")
		return nil, rateLimited(wait)
	}

	code, err := s.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate code", "phone", phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	if wait, ok := s.limiter.Allow(phone); !ok {
		slog.WarnContext(ctx, "send budget exhausted for phone", "phone", phone, "wait", wait.String())
		count(ctx, s.requests, "budget")
		return nil, rateLimited(wait)
	}

	res := s.gateway.Send(ctx, phone, code)
	if !res.Success {
		slog.ErrorContext(ctx, "failed to deliver code", "phone", phone, "attempts", res.Attempts,
			"class", res.Class.String(), "error", res.Err)
		count(ctx, s.requests, "delivery_failed")
		return nil, goerror.NewUnavailable(res.Err, "could not send code, try again")
	}

	rec, err := s.registry.Issue(phone, code, s.ttl())
	if errors.Is(err, entity.ErrPending) {
		count(ctx, s.requests, "pending")
		return nil, rateLimited(rec.Remaining(s.clock.Now()))
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to store code", "phone", phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	count(ctx, s.requests, "sent")
	slog.InfoContext(ctx, "code sent", "phone", phone, "challenge_id", rec.ID, "message_id", res.MessageID)

	return &RequestCodeOutput{
		Phone:     phone,
		ExpiresIn: rec.ExpiresAt.Sub(rec.CreatedAt),
		MessageID: res.MessageID,
	}, nil
}

func rateLimited(wait time.Duration) error {
	return goerror.NewRateLimited(
		fmt.Sprintf("please wait %d seconds before requesting a new code", entity.CeilSeconds(wait)),
		time.Duration(entity.CeilSeconds(wait))*time.Second,
	)
}
