package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/procurement/internal/core/events"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/transition"
)

type PurchaseRequestReader interface {
	GetByID(ctx context.Context, id string) (*purchaserequest.PurchaseRequest, error)
}

type ContextBuilder interface {
	Build(ctx context.Context, key transition.Key, pr *purchaserequest.PurchaseRequest, actorID, notes string) *transition.Context
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Request describes one notification attempt.
type Request struct {
	Key          transition.Key
	PRID         string
	ActorID      string
	Notes        string
	ReminderDate string
	// Sequence identifies the occurrence; zero means unscoped.
	Sequence int
}

type Service struct {
	prs         PurchaseRequestReader
	registry    *transition.Registry
	builder     ContextBuilder
	guard       *Guard
	sender      Sender
	fromAddress string
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	prs PurchaseRequestReader,
	registry *transition.Registry,
	builder ContextBuilder,
	guard *Guard,
	sender Sender,
	fromAddress string,
	logger *slog.Logger,
) *Service {
	return &Service{
		prs:         prs,
		registry:    registry,
		builder:     builder,
		guard:       guard,
		sender:      sender,
		fromAddress: fromAddress,
		logger:      logger,
		now:         time.Now,
	}
}

// Subscribe wires the service to the procurement events.
func (s *Service) Subscribe(bus Subscriber) {
	bus.Subscribe(events.EventTypeStatusChanged, s.handleStatusChanged)
	bus.Subscribe(events.EventTypeQuoteConflictFlagged, s.handleQuoteConflict)
}

func (s *Service) handleStatusChanged(ctx context.Context, e events.Event) error {
	ev, ok := e.(*events.StatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	s.Notify(ctx, Request{
		Key: transition.StatusKey(
			purchaserequest.Status(ev.PreviousStatus),
			purchaserequest.Status(ev.NewStatus)),
		PRID:     ev.PurchaseRequestID,
		ActorID:  ev.ActorID,
		Notes:    ev.Notes,
		Sequence: ev.Sequence,
	})
	return nil
}

func (s *Service) handleQuoteConflict(ctx context.Context, e events.Event) error {
	ev, ok := e.(*events.QuoteConflictFlaggedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	s.Notify(ctx, Request{
		Key:          transition.QuoteConflictKey(),
		PRID:         ev.PurchaseRequestID,
		ReminderDate: ev.ReminderDate,
		Sequence:     ev.Sequence,
	})
	return nil
}

// Notify dispatches, guards, sends and records one notification. Failures are
// logged and reported in the result.
func (s *Service) Notify(ctx context.Context, req Request) Result {
	log := s.logger.With("pr_id", req.PRID, "transition", req.Key.String())

	if _, ok := s.registry.Lookup(req.Key); !ok {
		log.Debug("transition does not notify")
		return Result{Success: true, Message: "no notification for this transition"}
	}

	pr, err := s.prs.GetByID(ctx, req.PRID)
	if err != nil {
		log.Error("failed to load purchase request for notification", "error", err)
		return Result{Message: "purchase request could not be loaded"}
	}

	tc := s.builder.Build(ctx, req.Key, pr, req.ActorID, req.Notes)
	tc.ReminderDate = req.ReminderDate
	tc.Reminder = req.ReminderDate != ""
	tc.Sequence = req.Sequence

	msg, err := s.registry.Dispatch(tc)
	switch {
	case errors.Is(err, transition.ErrNotApplicable):
		log.Info("transition handler declined, nothing to send")
		return Result{Success: true, Message: "notification not applicable"}
	case err != nil:
		log.Error("failed to build notification", "error", err)
		return Result{Message: "notification content could not be generated"}
	}

	if msg.Recipients.Empty() {
		log.Warn("notification has no recipients", "type", msg.Type)
		return Result{Message: "no recipients for notification"}
	}

	entry := &Log{
		ID:         uuid.NewString(),
		PRID:       pr.ID,
		Type:       msg.Type,
		Recipients: msg.Recipients.To,
		CC:         msg.Recipients.CC,
		Subject:    msg.Content.Subject,
		Status:     StatusPending,
		CreatedAt:  s.now(),
	}

	id, duplicate, err := s.guard.Reserve(ctx, entry)
	if err != nil {
		log.Error("failed to record notification", "type", msg.Type, "error", err)
		return Result{Message: "notification could not be recorded"}
	}
	if duplicate {
		log.Info("notification already recorded, skipping", "type", msg.Type, "notification_id", id)
		return Result{Success: true, Message: "notification already sent", NotificationID: id, Duplicate: true}
	}

	err = s.sender.Send(ctx, Email{
		From:    s.fromAddress,
		To:      msg.Recipients.To,
		CC:      msg.Recipients.CC,
		Subject: msg.Content.Subject,
		Text:    msg.Content.Text,
		HTML:    msg.Content.HTML,
	})
	if err != nil {
		log.Error("failed to send notification", "type", msg.Type, "notification_id", id, "error", err)
		if markErr := s.guard.MarkFailed(ctx, id, err.Error()); markErr != nil {
			log.Error("failed to mark notification as failed", "notification_id", id, "error", markErr)
		}
		return Result{Message: "notification could not be sent", NotificationID: id}
	}

	entry.ID = id
	if err := s.guard.MarkSent(ctx, entry); err != nil {
		log.Error("failed to mark notification as sent", "notification_id", id, "error", err)
	}

	log.Info("notification sent", "type", msg.Type, "notification_id", id, "recipients", len(msg.Recipients.All()))
	return Result{Success: true, Message: "notification sent", NotificationID: id}
}
