package services

import (
	"context"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/pkg/logging"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type MessageService struct {
	log    *slog.Logger
	repo   domain.MessageRepository
	users  domain.UserRepository
	router contracts.Router
	tx     contracts.Transactor
}

func NewMessageService(
	log *slog.Logger,
	repo domain.MessageRepository,
	users domain.UserRepository,
	router contracts.Router,
	tx contracts.Transactor,
) *MessageService {
	return &MessageService{
		log:    log,
		repo:   repo,
		users:  users,
		router: router,
		tx:     tx,
	}
}

// Send persists the message and then routes it to the receiver's live
// connections. Routing happens only once the save committed and cannot fail
// the call.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID string, in SendMessageRequest) (domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.Send", trace.WithAttributes(
		attribute.String("sender_id", senderID),
		attribute.String("receiver_id", receiverID),
	))
	defer span.End()
	draft := domain.DraftMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       in.Text,
		Image:      in.Image,
	}
	if err := draft.Validate(); err != nil {
		span.RecordError(err)
		return domain.Message{}, err
	}
	if err := checkImageRef(draft.Image); err != nil {
		span.RecordError(err)
		return domain.Message{}, err
	}
	var msg domain.Message
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.users.GetUserByID(txCtx, receiverID); err != nil {
			return err
		}
		var err error
		msg, err = s.repo.Save(txCtx, draft)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.log.ErrorContext(ctx, "messages - send - save failed", logging.User(senderID), logging.Peer(receiverID), logging.Err(err))
		return domain.Message{}, err
	}
	s.log.InfoContext(ctx, "messages - send - save success", logging.Message(msg.ID.String()), logging.User(senderID), logging.Peer(receiverID))

	report := s.router.Route(ctx, msg)
	span.SetAttributes(
		attribute.String("message_id", msg.ID.String()),
		attribute.Bool("receiver_offline", report.Offline),
		attribute.Int("delivered", report.Delivered),
	)
	return msg, nil
}

// History returns the conversation between the two users, oldest first.
func (s *MessageService) History(ctx context.Context, userID, peerID string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.History", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("peer_id", peerID),
	))
	defer span.End()
	if userID == "" || peerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	msgs, err := s.repo.FindHistory(ctx, userID, peerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "db read failed")
		s.log.ErrorContext(ctx, "messages - history - find history failed", logging.User(userID), logging.Peer(peerID), logging.Err(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("message_count", len(msgs)))
	s.log.DebugContext(ctx, "messages - history - success", logging.User(userID), "len_messages", len(msgs))
	return msgs, nil
}
