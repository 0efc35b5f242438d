package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"community-interaction-api/internal/metrics"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationRosterPromoted NotificationType = "ROSTER_PROMOTED"
	NotificationCommentReplied NotificationType = "COMMENT_REPLIED"
)

// NotificationEvent represents a notification to be sent
type NotificationEvent struct {
	Type         NotificationType       `json:"type"`
	ActorID      uint                   `json:"actorId"`
	TargetUserID uint                   `json:"targetUserId"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   uint                   `json:"resourceId"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt   string                 `json:"occurredAt,omitempty"`
}

// BulkNotificationRequest represents a bulk notification request
type BulkNotificationRequest struct {
	Notifications []NotificationEvent `json:"notifications"`
}

// NotificationClient sends user-facing notices to the notification service.
// Delivery failures are logged and swallowed so they never fail an engine operation.
type NotificationClient interface {
	SendNotification(ctx context.Context, event NotificationEvent) error
	SendBulkNotifications(ctx context.Context, events []NotificationEvent) error
}

type notificationClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewNotificationClient creates a new Notification API client
func NewNotificationClient(baseURL string, apiKey string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) NotificationClient {
	return &notificationClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: m,
	}
}

// SendNotification sends a single notification to the notification service
func (c *notificationClient) SendNotification(ctx context.Context, event NotificationEvent) error {
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	return c.post(ctx, "/api/internal/notifications", event, 1,
		zap.String("type", string(event.Type)),
		zap.Uint("target_user_id", event.TargetUserID),
	)
}

// SendBulkNotifications sends multiple notifications at once
func (c *notificationClient) SendBulkNotifications(ctx context.Context, events []NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range events {
		if events[i].OccurredAt == "" {
			events[i].OccurredAt = now
		}
	}
	return c.post(ctx, "/api/internal/notifications/bulk", BulkNotificationRequest{Notifications: events}, len(events))
}

// post returns an error only for local failures (encoding, request building)
func (c *notificationClient) post(ctx context.Context, path string, body interface{}, count int, fields ...zap.Field) error {
	url := c.baseURL + path
	fields = append(fields, zap.Int("count", count))

	jsonBody, err := json.Marshal(body)
	if err != nil {
		c.logger.Error("Failed to marshal notification request", append(fields, zap.Error(err))...)
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		c.logger.Error("Failed to create notification request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-API-Key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.metrics.RecordExternalAPICall(path, http.MethodPost, statusCode, duration, err)

	fields = append(fields, zap.Duration("duration", duration))
	if err != nil {
		c.logger.Error("Failed to send notification", append(fields, zap.Error(err))...)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Info("Notification sent", fields...)
		return nil
	}

	c.logger.Warn("Notification service returned non-success status", append(fields, zap.Int("status_code", resp.StatusCode))...)
	return nil
}

// NoOpNotificationClient is a no-op implementation for when notifications are disabled
type NoOpNotificationClient struct{}

func NewNoOpNotificationClient() NotificationClient {
	return &NoOpNotificationClient{}
}

func (c *NoOpNotificationClient) SendNotification(ctx context.Context, event NotificationEvent) error {
	return nil
}

func (c *NoOpNotificationClient) SendBulkNotifications(ctx context.Context, events []NotificationEvent) error {
	return nil
}
