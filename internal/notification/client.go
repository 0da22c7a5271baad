package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// NotificationLevel represents the severity level of a notification
type NotificationLevel string

const (
	LevelInfo     NotificationLevel = "info"
	LevelWarning  NotificationLevel = "warning"
	LevelError    NotificationLevel = "error"
	LevelCritical NotificationLevel = "critical"
)

// Notifier is an interface for sending notifications with context support
type Notifier interface {
	SendNotificationWithContext(ctx context.Context, notification Notification) error
	IsHealthy(ctx context.Context) bool
}

// NotificationConfig holds configuration for the notification client
type NotificationConfig struct {
	URL            string
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MaxPayloadSize int64
}

// DefaultConfig returns a default configuration for the notification client
func DefaultConfig(url string) NotificationConfig {
	return NotificationConfig{
		URL:            url,
		Timeout:        10 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		MaxPayloadSize: 1024 * 1024, // 1MB
	}
}

// notificationClient is the concrete implementation of the Notifier interface
type notificationClient struct {
	config NotificationConfig
	client *http.Client
	logger logrus.FieldLogger
}

// NewNotifierWithConfig creates a new Notifier with custom configuration.
// An empty URL yields a notifier that drops everything.
func NewNotifierWithConfig(config NotificationConfig, logger logrus.FieldLogger) Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.URL == "" {
		return Discard{}
	}

	return &notificationClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.WithField("component", "notifier"),
	}
}

// Notification represents the payload for the notification service
type Notification struct {
	Level        NotificationLevel `json:"level"`
	Event        string            `json:"event"`
	ComputerID   string            `json:"computerId,omitempty"`
	ComputerName string            `json:"computerName,omitempty"`
	Message      string            `json:"message"`
	Timestamp    time.Time         `json:"timestamp,omitempty"`
	Source       string            `json:"source,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the notification is valid
func (n *Notification) Validate() error {
	if n.Level == "" {
		return fmt.Errorf("notification level is required")
	}
	if n.Event == "" {
		return fmt.Errorf("notification event is required")
	}
	if n.Message == "" {
		return fmt.Errorf("notification message is required")
	}
	if len(n.Message) > 1000 {
		return fmt.Errorf("notification message too long (max 1000 characters)")
	}

	switch n.Level {
	case LevelInfo, LevelWarning, LevelError, LevelCritical:
	default:
		return fmt.Errorf("invalid notification level: %s", n.Level)
	}

	return nil
}

// SendNotificationWithContext sends a notification with context support
func (c *notificationClient) SendNotificationWithContext(ctx context.Context, notification Notification) error {
	if err := notification.Validate(); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}
	if notification.Source == "" {
		notification.Source = "lab-manager"
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			c.logger.WithField("attempt", attempt+1).Debug("Retrying notification send")
		}

		if err := c.sendNotificationAttempt(ctx, notification); err != nil {
			lastErr = err
			c.logger.WithError(err).WithField("attempt", attempt+1).Warn("Notification send attempt failed")

			// Don't retry on client errors or payload problems
			if strings.Contains(err.Error(), "status 4") ||
				strings.Contains(err.Error(), "payload too large") ||
				strings.Contains(err.Error(), "failed to marshal") {
				return err
			}
			continue
		}

		return nil
	}

	return fmt.Errorf("failed to send notification after %d attempts: %w", c.config.RetryAttempts+1, lastErr)
}

// sendNotificationAttempt performs a single notification send attempt
func (c *notificationClient) sendNotificationAttempt(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if int64(len(payload)) > c.config.MaxPayloadSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), c.config.MaxPayloadSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "lab-manager/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service returned error status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// IsHealthy checks if the notification service is healthy
func (c *notificationClient) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.config.URL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "lab-manager/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// Discard is the Notifier used when no webhook is configured.
type Discard struct{}

func (Discard) SendNotificationWithContext(context.Context, Notification) error { return nil }

func (Discard) IsHealthy(context.Context) bool { return true }
