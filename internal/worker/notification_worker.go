package worker

import (
	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/service"
)

// StartNotificationWorker registers notification handlers and starts the
// dispatcher's worker pool so booking notices are stored off the request path.
func StartNotificationWorker(dispatcher *events.AsyncDispatcher, notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if dispatcher != nil {
		dispatcher.Start()
	}
}
