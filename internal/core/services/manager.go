package services

import (
	"context"
	"linkup/internal/core/contracts"
	"linkup/pkg/logging"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("linkup-services")

// ConnectionManager moves authenticated connections in and out of the
// registry and keeps everyone's roster in step.
type ConnectionManager struct {
	log       *slog.Logger
	registry  contracts.Registry
	announcer contracts.Announcer
}

func NewConnectionManager(
	log *slog.Logger,
	registry contracts.Registry,
	announcer contracts.Announcer,
) *ConnectionManager {
	return &ConnectionManager{
		log:       log,
		registry:  registry,
		announcer: announcer,
	}
}

// Connect registers the client and makes sure it receives the roster: a user
// coming online is announced to everybody, an extra tab is greeted alone.
// On error the client is closed and no state is left behind.
func (m *ConnectionManager) Connect(ctx context.Context, c contracts.Client) (*Session, error) {
	ctx, span := tracer.Start(ctx, "ConnectionManager.Connect", trace.WithAttributes(
		attribute.String("user_id", c.UserID()),
		attribute.String("conn_id", c.ID()),
	))
	defer span.End()

	becameOnline, err := m.registry.Register(c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "register failed")
		m.log.WarnContext(ctx, "manager - connect - register failed", logging.User(c.UserID()), logging.Conn(c.ID()), logging.Err(err))
		c.Close()
		return nil, err
	}
	span.SetAttributes(attribute.Bool("became_online", becameOnline))
	if becameOnline {
		m.announcer.Announce(ctx)
	} else {
		m.announcer.Greet(ctx, c)
	}
	m.log.InfoContext(ctx, "manager - connect - success", logging.User(c.UserID()), logging.Conn(c.ID()), "became_online", becameOnline)
	return &Session{client: c, manager: m, startedAt: time.Now()}, nil
}

func (m *ConnectionManager) disconnect(ctx context.Context, s *Session) {
	c := s.client
	ctx, span := tracer.Start(ctx, "ConnectionManager.Disconnect", trace.WithAttributes(
		attribute.String("user_id", c.UserID()),
		attribute.String("conn_id", c.ID()),
	))
	defer span.End()

	// False as well when an eviction already removed the handle.
	wentOffline := m.registry.Unregister(c)
	span.SetAttributes(attribute.Bool("went_offline", wentOffline))
	if wentOffline {
		m.announcer.Announce(ctx)
	}
	c.Close()
	m.log.InfoContext(ctx, "manager - disconnect - success",
		logging.User(c.UserID()), logging.Conn(c.ID()),
		"went_offline", wentOffline, "duration", time.Since(s.startedAt).String())
}
