package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tramite-system/pkg/notify"
)

// Hub управляет всеми клиентами и рассылкой сообщений
type Hub struct {
	clients     map[*Client]bool
	userClients map[uuid.UUID][]*Client
	Register    chan *Client
	unregister  chan *Client
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[uuid.UUID][]*Client),
		Register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// Run обслуживает регистрацию клиентов до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Debug("Клиент зарегистрирован", zap.String("user_id", client.UserID.String()))
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.logger.Debug("Клиент отсоединен", zap.String("user_id", client.UserID.String()))
}

// SendMessageToUser отправляет конверт во все живые соединения пользователя и возвращает их число.
// Переполненный буфер клиента пропускается, а не блокирует рассылку.
func (h *Hub) SendMessageToUser(userID uuid.UUID, payload interface{}, messageType string) (int, error) {
	envelope := Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.userClients[userID] {
		select {
		case client.Send <- messageBytes:
			delivered++
		default:
			h.logger.Warn("Буфер WebSocket-клиента переполнен", zap.String("user_id", userID.String()))
		}
	}
	return delivered, nil
}

// Deliver - канал push. Подтверждение есть, если сообщение ушло хотя бы в одно соединение.
func (h *Hub) Deliver(ctx context.Context, msg notify.Message) (bool, error) {
	n, err := h.SendMessageToUser(msg.UsuarioID, NotificationPayload{
		Type:          msg.Tipo,
		Title:         msg.Titulo,
		Message:       msg.Mensaje,
		NumeroTramite: msg.NumeroTramite,
	}, MessageTypeNotification)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
