package websocket

import "time"

const MessageTypeNotification = "notification"

// Envelope — это "конверт", в котором мы отправляем наши сообщения.
// Он содержит тип сообщения, что позволяет фронтенду понять, что делать.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationPayload — уведомление для "колокольчика" на фронтенде.
type NotificationPayload struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	NumeroTramite string `json:"numeroTramite,omitempty"`
}
