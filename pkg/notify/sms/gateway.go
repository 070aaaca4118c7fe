package sms

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tramite-system/pkg/config"
	"tramite-system/pkg/notify"
)

// sendRequest - тело запроса к SMS-шлюзу.
type sendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// sendResponse - ответ шлюза. Status "delivered" - подтверждённая доставка, "queued" - принято в очередь.
type sendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// GatewayClient - клиент HTTP SMS-шлюза.
type GatewayClient struct {
	httpClient *resty.Client
	sender     string
	logger     *zap.Logger
}

func NewGatewayClient(cfg config.SMSConfig, logger *zap.Logger) *GatewayClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &GatewayClient{
		httpClient: client,
		sender:     cfg.Sender,
		logger:     logger,
	}
}

func (c *GatewayClient) Deliver(ctx context.Context, msg notify.Message) (bool, error) {
	if msg.Telefono == "" {
		return false, notify.ErrNoAddress
	}

	var result sendResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(sendRequest{From: c.sender, To: msg.Telefono, Text: fmt.Sprintf("%s: %s", msg.Titulo, msg.Mensaje)}).
		SetResult(&result).
		SetError(&result).
		Post("/messages")
	if err != nil {
		c.logger.Error("SMS-шлюз недоступен", zap.Error(err))
		return false, fmt.Errorf("failed to call SMS gateway: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		c.logger.Error("SMS-шлюз вернул ошибку",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", result.Error),
		)
		return false, fmt.Errorf("SMS gateway error: %s (status: %d)", result.Error, resp.StatusCode())
	}

	c.logger.Debug("SMS принято шлюзом", zap.String("id", result.ID), zap.String("status", result.Status))
	return result.Status == "delivered", nil
}
