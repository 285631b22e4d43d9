package sender

import (
	"context"
	"fmt"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/retry"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailSender is the SMTP channel sink.
type EmailSender struct {
	dialer *gomail.Dialer
	host   string
	from   string
	log    *zap.Logger
	retry  retry.Strategy
}

func NewEmailSender(host string, port int, username, password, from string, strategy retry.Strategy, log *zap.Logger) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(host, port, username, password),
		host:   host,
		from:   from,
		log:    log,
		retry:  strategy,
	}
}

// Send delivers one rendered notification. Bounded retry happens here at
// the transport boundary; the dispatcher never retries.
func (s *EmailSender) Send(ctx context.Context, target entity.ChannelTarget, event entity.NetworkEvent, effective entity.Priority) error {
	const op = "sender.EmailSender.Send"

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", target.Address)
	msg.SetHeader("Subject", emailSubject(event))
	msg.SetBody("text/html", emailBody(event, effective))

	err := s.retry.Do(ctx, func() error {
		return s.dialer.DialAndSend(msg)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("email sent",
		zap.String("to", target.Address),
		zap.String("event_id", event.ID),
	)
	return nil
}

// Status reports whether SMTP is configured. Connectivity is only known
// at send time; a configured sender is reported as available.
func (s *EmailSender) Status(ctx context.Context) Status {
	configured := s.host != "" && s.from != ""
	return Status{
		Channel:    entity.ChannelEmail,
		Configured: configured,
		Connected:  configured,
	}
}
