package services

import (
	"context"
	"errors"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/repository"
	"github.com/omaree-johnson/myumrahesim-sub002/sender"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversionPublisher emits cart.converted events to interested consumers.
type ConversionPublisher interface {
	SendConversionEvent(ctx context.Context, event models.ConversionEvent) error
}

// ScheduleResult reports which reminder slots this request managed to claim.
// A nil slot means the send was skipped (already claimed, session converted,
// or dispatch failed).
type ScheduleResult struct {
	Reminder1 *string
	Reminder2 *string
}

// ReminderService drives the cart-session state machine:
// Active-NoReminder -> Active-Reminder1Sent -> Active-Reminder2Sent -> Converted.
// Converted is terminal and reachable from any active state.
type ReminderService interface {
	SaveOrUpdateCart(ctx context.Context, req models.SaveCartRequest) (*models.CartSession, error)
	ScheduleReminders(ctx context.Context, session *models.CartSession) (ScheduleResult, error)
	MarkConverted(ctx context.Context, token string) error
}

type reminderService struct {
	repo      repository.CartSessionRepository
	email     sender.EmailSender
	renderer  EmailRenderer
	publisher ConversionPublisher

	reminder1Delay time.Duration
	reminder2Delay time.Duration
	storeBaseURL   string

	logger *zap.Logger
	now    func() time.Time
}

func NewReminderService(
	repo repository.CartSessionRepository,
	email sender.EmailSender,
	renderer EmailRenderer,
	publisher ConversionPublisher,
	reminder1Delay, reminder2Delay time.Duration,
	storeBaseURL string,
	logger *zap.Logger,
) ReminderService {
	return &reminderService{
		repo:           repo,
		email:          email,
		renderer:       renderer,
		publisher:      publisher,
		reminder1Delay: reminder1Delay,
		reminder2Delay: reminder2Delay,
		storeBaseURL:   storeBaseURL,
		logger:         logger,
		now:            time.Now,
	}
}

// reminderEmailData feeds the cart reminder templates.
type reminderEmailData struct {
	Items      models.PlanItems
	RestoreURL string
}

// SaveOrUpdateCart upserts the session by token and schedules both reminders
// while the session is still active. Re-saving the same cart is idempotent:
// shopper-editable fields refresh, reminder slots never re-fire.
func (s *reminderService) SaveOrUpdateCart(ctx context.Context, req models.SaveCartRequest) (*models.CartSession, error) {
	token := req.Token
	if token == "" {
		token = "crt_" + uuid.NewString()
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	session, err := s.repo.Upsert(ctx, token, req.Email, req.Items, currency)
	if err != nil {
		return nil, apperrors.Persistence("failed to save cart", err)
	}

	if session.Converted() {
		return session, nil
	}

	if _, err := s.ScheduleReminders(ctx, session); err != nil {
		// dispatch problems are surfaced in logs; the save itself succeeded
		s.logger.Warn("reminder scheduling incomplete",
			zap.String("token", session.Token),
			zap.Error(err),
		)
	}

	return s.repo.FindByToken(ctx, token)
}

// ScheduleReminders dispatches up to two provider-scheduled emails for the
// session. The delay travels as send_at data on the outbound message; nothing
// blocks here. Each successful dispatch is persisted with a conditional
// update on the still-null slot, so concurrent schedulers cannot double-send.
func (s *reminderService) ScheduleReminders(ctx context.Context, session *models.CartSession) (ScheduleResult, error) {
	var result ScheduleResult

	if session.Reminder1EmailID == nil {
		id, err := s.dispatchReminder(ctx, session, repository.ReminderSlot1, TemplateCartReminder1, s.reminder1Delay)
		if err != nil {
			// reminder 2 is only eligible once reminder 1 is on record
			return result, err
		}
		result.Reminder1 = id
	}

	// Re-read immediately before considering reminder 2: a conversion that
	// happened since request receipt must suppress the send.
	fresh, err := s.repo.FindByToken(ctx, session.Token)
	if err != nil {
		return result, apperrors.Persistence("failed to re-read session", err)
	}
	if fresh.Converted() || fresh.Reminder1EmailID == nil {
		return result, nil
	}

	if fresh.Reminder2EmailID == nil {
		id, err := s.dispatchReminder(ctx, fresh, repository.ReminderSlot2, TemplateCartReminder2, s.reminder2Delay)
		if err != nil {
			return result, err
		}
		result.Reminder2 = id
	}

	return result, nil
}

// dispatchReminder sends one scheduled reminder and records it. Returns the
// message id when this request claimed the slot, nil when a concurrent
// scheduler or a conversion won the race.
func (s *reminderService) dispatchReminder(ctx context.Context, session *models.CartSession, slot int, templateName string, delay time.Duration) (*string, error) {
	subject, html, err := s.renderer.Render(templateName, reminderEmailData{
		Items:      session.Items,
		RestoreURL: s.storeBaseURL + "/cart/restore?token=" + session.Token,
	})
	if err != nil {
		return nil, apperrors.Notification("failed to render reminder email", err)
	}

	sendAt := s.now().Add(delay)
	res, err := s.email.Send(ctx, sender.Message{
		To:      session.Email,
		Subject: subject,
		HTML:    html,
		SendAt:  &sendAt,
	})
	if err != nil {
		s.logger.Error("reminder dispatch failed",
			zap.String("token", session.Token),
			zap.Int("slot", slot),
			zap.Error(err),
		)
		return nil, apperrors.Notification("failed to dispatch reminder email", err)
	}

	ok, err := s.repo.SetReminderIfUnset(ctx, session.Token, slot, res.MessageID, sendAt)
	if err != nil {
		// The email left for the provider but the record did not update.
		// Surface loudly for operators; the fields staying null is how this
		// state is detected later.
		s.logger.Warn("partial schedule failure: reminder dispatched but not recorded",
			zap.String("token", session.Token),
			zap.Int("slot", slot),
			zap.String("message_id", res.MessageID),
			zap.Error(err),
		)
		return nil, nil
	}
	if !ok {
		// Lost the conditional update: another scheduler claimed the slot or
		// the session converted. Recall our orphaned scheduled send.
		if cancelErr := s.email.Cancel(ctx, res.MessageID); cancelErr != nil {
			s.logger.Warn("failed to cancel superseded reminder",
				zap.String("token", session.Token),
				zap.String("message_id", res.MessageID),
				zap.Error(cancelErr),
			)
		}
		return nil, nil
	}

	s.logger.Info("reminder scheduled",
		zap.String("token", session.Token),
		zap.Int("slot", slot),
		zap.String("message_id", res.MessageID),
		zap.Time("send_at", sendAt),
	)
	return &res.MessageID, nil
}

// MarkConverted stamps the session as purchased. Repeat calls are no-ops.
// Pending provider-scheduled reminders are cancelled best-effort; a reminder
// racing this conversion is suppressed by the pre-send re-read instead.
func (s *reminderService) MarkConverted(ctx context.Context, token string) error {
	if _, err := s.repo.FindByToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("cart session not found")
		}
		return apperrors.Persistence("failed to load session", err)
	}

	convertedAt := s.now()
	won, err := s.repo.MarkConvertedIfActive(ctx, token, convertedAt)
	if err != nil {
		return apperrors.Persistence("failed to mark session converted", err)
	}
	if !won {
		// already converted; idempotent success
		return nil
	}

	fresh, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		s.logger.Warn("converted session re-read failed",
			zap.String("token", token),
			zap.Error(err),
		)
		return nil
	}

	s.cancelPendingReminders(ctx, fresh)

	if s.publisher != nil {
		event := models.ConversionEvent{
			Event:       "cart.converted",
			Token:       fresh.Token,
			Email:       fresh.Email,
			Items:       fresh.Items,
			ConvertedAt: convertedAt,
		}
		if err := s.publisher.SendConversionEvent(ctx, event); err != nil {
			s.logger.Warn("conversion event publish failed",
				zap.String("token", token),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("cart session converted", zap.String("token", token))
	return nil
}

func (s *reminderService) cancelPendingReminders(ctx context.Context, session *models.CartSession) {
	for _, id := range []*string{session.Reminder1EmailID, session.Reminder2EmailID} {
		if id == nil {
			continue
		}
		if err := s.email.Cancel(ctx, *id); err != nil {
			s.logger.Warn("failed to cancel scheduled reminder",
				zap.String("token", session.Token),
				zap.String("message_id", *id),
				zap.Error(err),
			)
		}
	}
}
