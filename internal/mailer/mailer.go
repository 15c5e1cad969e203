package mailer

import (
	"context"
	"errors"
	"expvar"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	emailsSent   = expvar.NewInt("emails_sent_total")
	emailsFailed = expvar.NewInt("emails_failed_total")
)

var ErrInvalidMessage = errors.New("invalid email message")

type Message struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	Provider string
	Command  string
	From     string
	Timeout  time.Duration
}

// New picks a sender by provider name. Unknown names fall back to logging.
func New(cfg Config, logger *zap.Logger) Sender {
	var sender Sender
	switch cfg.Provider {
	case "noop":
		sender = noopSender{}
	case "command":
		parts := strings.Fields(cfg.Command)
		if len(parts) == 0 {
			logger.Warn("mailer command is empty, falling back to log provider")
			sender = logSender{logger: logger}
			break
		}
		sender = NewCommandSender(parts[0], parts[1:], cfg.Timeout, logger)
	default:
		sender = logSender{logger: logger}
	}
	return instrumented{next: sender, from: cfg.From}
}

type logSender struct {
	logger *zap.Logger
}

func (s logSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

type noopSender struct{}

func (noopSender) Send(ctx context.Context, msg Message) error {
	return nil
}

// instrumented validates the message, fills the sender address and records
// a span and counters around the wrapped sender.
type instrumented struct {
	next Sender
	from string
}

func (s instrumented) Send(ctx context.Context, msg Message) error {
	msg.To = strings.TrimSpace(msg.To)
	if msg.To == "" || !strings.Contains(msg.To, "@") || msg.Subject == "" {
		return ErrInvalidMessage
	}
	if msg.From == "" {
		msg.From = s.from
	}

	ctx, span := otel.Tracer("fieldops/mailer").Start(ctx, "mailer.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("email.subject", msg.Subject))

	if err := s.next.Send(ctx, msg); err != nil {
		emailsFailed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	emailsSent.Add(1)
	return nil
}
