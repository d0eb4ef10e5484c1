package worker

import (
	"github.com/spec-kit/crm-service/internal/service"
)

// StartNotificationWorker subscribes the activity feed to domain events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
