package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Payload is the JSON body delivered to the browser service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Endpoint identifies one browser push registration.
type Endpoint struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Notifier defines the interface for delivering Web Push notifications.
type Notifier interface {
	Send(ctx context.Context, endpoint Endpoint, payload Payload) error
}

type client struct {
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
	ttl             int
}

// NewClient creates a Web Push notifier. Missing VAPID credentials are a
// configuration error and fail here rather than on first dispatch.
func NewClient(subscriber, vapidPublicKey, vapidPrivateKey string) (Notifier, error) {
	if vapidPublicKey == "" || vapidPrivateKey == "" {
		return nil, fmt.Errorf("web push VAPID keys are not configured")
	}
	if subscriber == "" {
		return nil, fmt.Errorf("web push subscriber contact is not configured")
	}
	return &client{
		subscriber:      subscriber,
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		ttl:             int((12 * time.Hour).Seconds()),
	}, nil
}

// Send delivers one notification to one endpoint.
func (c *client) Send(ctx context.Context, endpoint Endpoint, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: endpoint.Endpoint,
		Keys: webpush.Keys{
			P256dh: endpoint.P256dh,
			Auth:   endpoint.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.vapidPublicKey,
		VAPIDPrivateKey: c.vapidPrivateKey,
		TTL:             c.ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
