package delivery

import (
	"context"
	"encoding/json"
	"linkup/internal/app/fanout"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/internal/platform/metrics"
	"linkup/pkg/logging"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const eventMessage = "message"

var tracer = otel.Tracer("delivery-router")

type Options struct {
	PushTimeout  time.Duration
	EchoToSender bool
}

// Router pushes persisted messages to the live connections of their receiver.
// An offline receiver is not an error; the message is already stored.
type Router struct {
	log       *slog.Logger
	registry  contracts.Registry
	announcer contracts.Announcer
	metrics   *metrics.Metrics
	opts      Options
}

func NewRouter(
	log *slog.Logger,
	registry contracts.Registry,
	announcer contracts.Announcer,
	m *metrics.Metrics,
	opts Options,
) *Router {
	return &Router{
		log:       log,
		registry:  registry,
		announcer: announcer,
		metrics:   m,
		opts:      opts,
	}
}

func (r *Router) Route(ctx context.Context, msg domain.Message) domain.DeliveryReport {
	ctx, span := tracer.Start(ctx, "Router.Route", trace.WithAttributes(
		attribute.String("message_id", msg.ID.String()),
		attribute.String("receiver_id", msg.ReceiverID),
	))
	defer span.End()

	receivers := r.registry.Lookup(msg.ReceiverID)
	report := domain.DeliveryReport{
		MessageID: msg.ID.String(),
		Receiver:  msg.ReceiverID,
		Handles:   len(receivers),
		Offline:   len(receivers) == 0,
	}
	targets := receivers
	if r.opts.EchoToSender && msg.SenderID != msg.ReceiverID {
		targets = append(targets, r.registry.Lookup(msg.SenderID)...)
	}
	if len(targets) == 0 {
		r.metrics.ObserveDelivery(report)
		r.log.DebugContext(ctx, "router - route - receiver offline",
			logging.Message(report.MessageID), logging.User(msg.ReceiverID))
		return report
	}

	data, err := json.Marshal(domain.NewMessageEvent(msg))
	if err != nil {
		span.RecordError(err)
		report.Failed = report.Handles
		r.metrics.ObserveDelivery(report)
		r.log.ErrorContext(ctx, "router - encode message - failed", logging.Message(report.MessageID), logging.Err(err))
		return report
	}

	failures := fanout.Push(ctx, targets, data, r.opts.PushTimeout)
	for _, f := range failures {
		if f.Client.UserID() == msg.ReceiverID {
			report.Failed++
		}
		r.metrics.IncPushFailure(eventMessage)
		r.log.WarnContext(ctx, "router - push - evicting connection",
			logging.Message(report.MessageID), logging.User(f.Client.UserID()),
			logging.Conn(f.Client.ID()), logging.Err(f.Err))
	}
	report.Delivered = report.Handles - report.Failed
	r.metrics.ObserveDelivery(report)
	span.SetAttributes(
		attribute.Int("handles", report.Handles),
		attribute.Int("delivered", report.Delivered),
		attribute.Int("failed", report.Failed),
	)

	if fanout.Evict(r.registry, failures) && r.announcer != nil {
		r.announcer.Announce(ctx)
	}
	r.log.InfoContext(ctx, "router - route - success",
		logging.Message(report.MessageID), logging.User(msg.ReceiverID),
		"delivered", report.Delivered, "failed", report.Failed)
	return report
}
