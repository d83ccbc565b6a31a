package worker

import (
	"github.com/crmdesk/reply-service/internal/events"
	"github.com/crmdesk/reply-service/internal/service"
)

// StartListeners subscribes the audit and notification side effects to the
// reply workflow events.
func StartListeners(dispatcher events.Dispatcher, audit *service.AuditService, notifications *service.NotificationService) {
	if dispatcher == nil {
		return
	}
	if audit != nil {
		audit.RegisterHandlers(dispatcher)
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
}
