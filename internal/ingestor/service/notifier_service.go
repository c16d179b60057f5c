package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"finnews-notifier/internal/entity"
	"finnews-notifier/internal/ingestor/dto"
	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/pkg/common"
	"finnews-notifier/pkg/logger"
	"finnews-notifier/pkg/utils"
	"finnews-notifier/pkg/webpush"

	"github.com/lib/pq"
)

// NotifierService aggregates subscription matches into per-group
// notifications, records them and dispatches them over Web Push.
type NotifierService interface {
	Notify(ctx context.Context, matches []dto.NotificationMatch, newsTitles map[string]string) error
}

// NewNotifierService creates a new NotifierService.
func NewNotifierService(notificationRepo repository.NotificationRepository, push webpush.Notifier, log *logger.Logger) NotifierService {
	return &notifierService{
		notificationRepo: notificationRepo,
		push:             push,
		logger:           log,
	}
}

type notifierService struct {
	notificationRepo repository.NotificationRepository
	push             webpush.Notifier
	logger           *logger.Logger
}

// Notify folds the match list, renders one notification per (user, group),
// persists history rows and pushes to every endpoint of each user.
// Per-endpoint delivery failures are logged and do not affect other
// endpoints or groups.
func (s *notifierService) Notify(ctx context.Context, matches []dto.NotificationMatch, newsTitles map[string]string) error {
	pendings := Aggregate(matches, newsTitles)

	for _, pending := range pendings {
		history := &entity.Notification{
			UserID:   pending.UserID,
			Title:    pending.Title,
			Body:     pending.Body,
			URL:      pending.URL,
			Type:     common.NotificationTypeNews,
			SourceID: pending.SubscribedNewsID,
			Keywords: pq.StringArray(pending.Keywords),
		}
		if err := s.notificationRepo.CreateHistory(ctx, history); err != nil {
			s.logger.Error("Failed to record notification history",
				logger.ErrorField(err),
				logger.Field("user_id", pending.UserID),
				logger.Field("subscribed_news_id", pending.SubscribedNewsID))
		}

		s.dispatch(ctx, pending)
	}

	return nil
}

func (s *notifierService) dispatch(ctx context.Context, pending *dto.PendingNotification) {
	subs, err := s.notificationRepo.FindPushSubscriptions(ctx, pending.UserID)
	if err != nil {
		s.logger.Error("Failed to load push subscriptions",
			logger.ErrorField(err), logger.Field("user_id", pending.UserID))
		return
	}

	payload := webpush.Payload{
		Title: pending.Title,
		Body:  pending.Body,
		URL:   pending.URL,
	}

	for _, sub := range subs {
		endpoint := webpush.Endpoint{
			Endpoint: sub.Endpoint,
			P256dh:   sub.P256dh,
			Auth:     sub.Auth,
		}
		if err := s.push.Send(ctx, endpoint, payload); err != nil {
			s.logger.Error("Failed to deliver push notification",
				logger.ErrorField(err),
				logger.Field("user_id", pending.UserID),
				logger.StringField("endpoint", sub.Endpoint))
		}
	}
}

// Aggregate folds matches by (user, group). A match for a newsID already in
// the group's accumulator only merges its keyword, so one article never
// counts twice. The returned slice preserves first-seen order of groups and
// carries rendered titles, bodies and URLs.
func Aggregate(matches []dto.NotificationMatch, newsTitles map[string]string) []*dto.PendingNotification {
	type groupKey struct {
		userID           uint
		subscribedNewsID uint
	}

	byGroup := make(map[groupKey]*dto.PendingNotification)
	var order []groupKey

	for _, m := range matches {
		key := groupKey{userID: m.UserID, subscribedNewsID: m.SubscribedNewsID}
		pending, ok := byGroup[key]
		if !ok {
			pending = &dto.PendingNotification{
				UserID:           m.UserID,
				SubscribedNewsID: m.SubscribedNewsID,
			}
			byGroup[key] = pending
			order = append(order, key)
		}

		if !utils.ContainsString(pending.Keywords, m.Keyword) {
			pending.Keywords = append(pending.Keywords, m.Keyword)
		}
		if !utils.ContainsString(pending.NewsIDs, m.NewsID) {
			pending.NewsIDs = append(pending.NewsIDs, m.NewsID)
		}
	}

	pendings := make([]*dto.PendingNotification, 0, len(order))
	for _, key := range order {
		pending := byGroup[key]
		render(pending, newsTitles)
		pendings = append(pendings, pending)
	}
	return pendings
}

// render fills in the user-facing title, body and deep link of an aggregated
// notification.
func render(pending *dto.PendingNotification, newsTitles map[string]string) {
	keywords := strings.Join(pending.Keywords, ", ")

	if len(pending.NewsIDs) == 1 {
		newsID := pending.NewsIDs[0]
		pending.Title = fmt.Sprintf("Un nouvel article à propos de %s a été publié", keywords)
		pending.Body = newsTitles[newsID]
		pending.URL = "/news/" + newsID
		return
	}

	message := fmt.Sprintf("%d articles susceptibles de vous intéresser ont été publiés", len(pending.NewsIDs))
	if len(pending.Keywords) > 1 {
		message = fmt.Sprintf("%d articles à propos de %s ont été publiés", len(pending.NewsIDs), keywords)
	}
	pending.Title = message
	pending.Body = message
	pending.URL = "/news/focus/" + encodeNewsIDs(pending.NewsIDs)
}

// encodeNewsIDs packs a newsID list into a single URL path segment. Decoding
// the base64url value and splitting on "-" recovers the ids in order.
func encodeNewsIDs(ids []string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.Join(ids, "-")))
}
