package email

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"tramite-system/pkg/config"
	"tramite-system/pkg/notify"
)

// dialer - то, что нужно от gomail.Dialer. Выделено ради тестов.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	config config.SMTPConfig
	dialer dialer
	logger *zap.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

// Deliver отправляет письмо. Успешный DialAndSend считается подтверждением доставки.
func (s *SMTPSender) Deliver(ctx context.Context, msg notify.Message) (bool, error) {
	if msg.Email == "" {
		return false, notify.ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m := s.buildMessage(msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		return false, fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("Письмо отправлено", zap.String("to", msg.Email), zap.String("numero", msg.NumeroTramite))
	return true, nil
}

func (s *SMTPSender) buildMessage(msg notify.Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", msg.Titulo)
	m.SetBody("text/plain", msg.Mensaje)
	m.AddAlternative("text/html", fmt.Sprintf(`
		<html>
		<body>
			<h2>%s</h2>
			<p>%s</p>
		</body>
		</html>
	`, html.EscapeString(msg.Titulo), html.EscapeString(msg.Mensaje)))
	return m
}
