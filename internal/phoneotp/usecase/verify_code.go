package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/goerror"
)

const (
	msgInvalidCode     = "invalid or expired code"
	msgTooManyAttempts = "too many incorrect attempts, request a new code"
)

type VerifyCodeInput struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,digits,min=4,max=8"`
}

type VerifyCodeOutput struct {
	Success bool
	Reason  entity.Outcome
}

// VerifyCode checks code against the pending record for phone. Every outcome
// is returned in the output; non-OK outcomes also come with the caller-facing
// error, which never tells a wrong code apart from a missing or expired one.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	phone := s.normalizer.Normalize(in.Phone)
	if phone == "" {
		return nil, goerror.NewInvalidInput(nil, "phone", "phone must be a valid phone number")
	}

	res := s.registry.Consume(phone, foldDigits(in.Code))
	count(ctx, s.verifications, res.Outcome.String())
	out := &VerifyCodeOutput{Success: res.Outcome == entity.OutcomeOK, Reason: res.Outcome}

	switch res.Outcome {
	case entity.OutcomeOK:
	case entity.OutcomeTooManyAttempts:
		slog.WarnContext(ctx, "verification attempts exhausted", "phone", phone, "challenge_id", res.Record.ID)
		return out, goerror.NewBusiness(msgTooManyAttempts, goerror.CodeTooManyRequest)
	default:
		slog.WarnContext(ctx, "verification rejected", "phone", phone, "outcome", res.Outcome.String())
		return out, goerror.NewBusiness(msgInvalidCode, goerror.CodeUnauthorized)
	}

	if err := s.repoMessaging.PublishPhoneVerified(ctx, PhoneVerifiedEvent{
		Phone:       phone,
		ChallengeID: res.Record.ID,
		VerifiedAt:  s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish phone verified", "phone", phone, "challenge_id", res.Record.ID, "error", err)
	}

	slog.InfoContext(ctx, "phone verified", "phone", phone, "challenge_id", res.Record.ID)

	return out, nil
}
