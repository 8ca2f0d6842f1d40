package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/usecase"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneverify/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
	topic  string
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, topic string) *Messaging {
	if topic == "" {
		topic = event.PhoneVerifiedDestination
	}

	return &Messaging{client: client, ins: ins, topic: topic}
}

func (m *Messaging) PublishPhoneVerified(ctx context.Context, msg usecase.PhoneVerifiedEvent) error {
	ctx, span := m.ins.Tracer("phoneotp.outbound.mq").Start(ctx, "PublishPhoneVerified")
	defer span.End()

	span.SetAttributes(attribute.String("messaging.destination", m.topic))

	body, err := json.Marshal(event.PhoneVerifiedMessage{
		Phone:       msg.Phone,
		ChallengeID: msg.ChallengeID,
		VerifiedAt:  msg.VerifiedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, m.topic, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.Phone),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("phoneotp.challenge_id", strconv.FormatInt(msg.ChallengeID, 10)))

	return nil
}
