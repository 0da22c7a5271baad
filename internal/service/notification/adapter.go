package notification

import (
	"context"
	"unicode/utf8"

	"lab-manager/internal/notification"
	"lab-manager/internal/service"

	"github.com/google/uuid"
)

// The webhook rejects messages longer than this.
const maxMessageBytes = 1000

// ServiceAdapter adapts the notification client to the service layer interface
type ServiceAdapter struct {
	client notification.Notifier
}

// NewServiceAdapter creates a new notification service adapter
func NewServiceAdapter(client notification.Notifier) *ServiceAdapter {
	return &ServiceAdapter{
		client: client,
	}
}

// SendLabNotification converts a service notification into the webhook payload
func (a *ServiceAdapter) SendLabNotification(ctx context.Context, labNotification service.LabNotification) error {
	clientNotification := notification.Notification{
		Level:        mapNotificationLevel(labNotification.Type),
		Event:        string(labNotification.Type),
		ComputerName: labNotification.ComputerName,
		Message:      labNotification.Message,
		Metadata:     make(map[string]string, len(labNotification.Metadata)),
	}
	if labNotification.ComputerID != uuid.Nil {
		clientNotification.ComputerID = labNotification.ComputerID.String()
	}

	for k, v := range labNotification.Metadata {
		clientNotification.Metadata[k] = v
	}

	clientNotification.Message = truncate(clientNotification.Message, maxMessageBytes)

	return a.client.SendNotificationWithContext(ctx, clientNotification)
}

// mapNotificationLevel maps service notification types to client notification levels
func mapNotificationLevel(notificationType service.NotificationType) notification.NotificationLevel {
	switch notificationType {
	case service.NotificationTypeIncidentReported:
		return notification.LevelWarning
	case service.NotificationTypeComputerDown:
		return notification.LevelError
	default:
		return notification.LevelInfo
	}
}

func truncate(msg string, max int) string {
	if len(msg) <= max {
		return msg
	}
	cut := max - len("...")
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
