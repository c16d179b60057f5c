package service

import (
	"context"
	"fmt"
	"time"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/config"
	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/pkg/common"
	"finnews-notifier/pkg/logger"
	"finnews-notifier/pkg/webpush"
)

// CalendarReminderService pushes reminders for economic-calendar events about
// to start to users who asked for them.
type CalendarReminderService interface {
	Run(ctx context.Context) error
}

// NewCalendarReminderService creates a new CalendarReminderService.
func NewCalendarReminderService(
	cfg *config.Config,
	eventsRepo repository.EconomicEventsRepository,
	notificationRepo repository.NotificationRepository,
	push webpush.Notifier,
	log *logger.Logger,
) CalendarReminderService {
	return &calendarReminderService{
		cfg:              cfg,
		eventsRepo:       eventsRepo,
		notificationRepo: notificationRepo,
		push:             push,
		logger:           log,
	}
}

type calendarReminderService struct {
	cfg              *config.Config
	eventsRepo       repository.EconomicEventsRepository
	notificationRepo repository.NotificationRepository
	push             webpush.Notifier
	logger           *logger.Logger
}

// Run reminds all subscribers of events starting within the lead window. An
// event is marked reminded once its subscribers have been walked, regardless
// of individual delivery failures.
func (s *calendarReminderService) Run(ctx context.Context) error {
	now := time.Now()
	events, err := s.eventsRepo.FindDueReminders(ctx, now, s.cfg.Calendar.ReminderLead)
	if err != nil {
		return fmt.Errorf("failed to find due events: %w", err)
	}

	for _, event := range events {
		subscribers, err := s.notificationRepo.FindEventSubscribers(ctx, event.Country, event.Importance)
		if err != nil {
			s.logger.Error("Failed to load event subscribers",
				logger.ErrorField(err), logger.StringField("event_id", event.ID))
			continue
		}

		for _, subscriber := range subscribers {
			s.remind(ctx, event, subscriber.UserID)
		}

		if err := s.eventsRepo.MarkReminded(ctx, event.ID, now); err != nil {
			s.logger.Error("Failed to mark event as reminded",
				logger.ErrorField(err), logger.StringField("event_id", event.ID))
		}
	}

	return nil
}

func (s *calendarReminderService) remind(ctx context.Context, event entity.EconomicEvent, userID uint) {
	minutes := int(time.Until(event.Date).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	title := fmt.Sprintf("%s commence dans %d minutes", event.Title, minutes)
	body := fmt.Sprintf("Événement économique (%s)", event.Country)
	url := "/calendar/" + event.ID

	history := &entity.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		URL:    url,
		Type:   common.NotificationTypeEvent,
	}
	if err := s.notificationRepo.CreateHistory(ctx, history); err != nil {
		s.logger.Error("Failed to record reminder history",
			logger.ErrorField(err), logger.Field("user_id", userID))
	}

	subs, err := s.notificationRepo.FindPushSubscriptions(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load push subscriptions",
			logger.ErrorField(err), logger.Field("user_id", userID))
		return
	}

	payload := webpush.Payload{Title: title, Body: body, URL: url}
	for _, sub := range subs {
		endpoint := webpush.Endpoint{Endpoint: sub.Endpoint, P256dh: sub.P256dh, Auth: sub.Auth}
		if err := s.push.Send(ctx, endpoint, payload); err != nil {
			s.logger.Error("Failed to deliver event reminder",
				logger.ErrorField(err),
				logger.Field("user_id", userID),
				logger.StringField("endpoint", sub.Endpoint))
		}
	}
}
