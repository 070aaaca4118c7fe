package routes

import (
	"github.com/labstack/echo/v4"

	"tramite-system/internal/controllers"
)

func runNotificationRouter(secureGroup *echo.Group, deps Dependencies) {
	ctrl := controllers.NewNotificationController(deps.NotificationService, deps.Logger)

	secureGroup.GET("/notifications", ctrl.GetNotifications)
	secureGroup.GET("/notifications/unread-count", ctrl.GetUnreadCount)
	secureGroup.PUT("/notifications/read-all", ctrl.MarkAllRead)
	secureGroup.PUT("/notifications/:id/read", ctrl.MarkRead)
	secureGroup.DELETE("/notifications/:id", ctrl.DeleteNotification)
}
