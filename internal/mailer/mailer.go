// Package mailer renders and delivers the transactional emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pictogram/internal/config"
	"pictogram/internal/middleware"
	"pictogram/internal/observability"

	"golang.org/x/time/rate"
)

// Template names.
const (
	TemplateWelcome       = "welcome"
	TemplateResetPassword = "reset-password"
)

// ErrTransient marks delivery failures worth retrying later.
var ErrTransient = errors.New("transient mail failure")

// Mailer sends a templated message to one address.
type Mailer interface {
	Send(ctx context.Context, to, template string, vars map[string]string) error
}

// New builds the configured mailer, paced by MAIL_RATE_PER_SECOND.
func New(cfg *config.Config) Mailer {
	var m Mailer
	switch cfg.MailDriver {
	case "smtp":
		m = NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	default:
		m = NewLogMailer(middleware.Logger)
	}
	return NewLimited(m, cfg.MailRatePerSecond, 1)
}

// LogMailer writes rendered messages to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a mailer logging to l.
func NewLogMailer(l *slog.Logger) *LogMailer {
	return &LogMailer{logger: l}
}

func (m *LogMailer) Send(ctx context.Context, to, template string, vars map[string]string) error {
	msg, err := Render(template, vars)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail suppressed",
		slog.String("to", to),
		slog.String("template", template),
		slog.String("subject", msg.Subject),
		slog.String("url", vars["url"]),
	)
	return nil
}

// Limited paces deliveries through a token bucket and records outcomes.
type Limited struct {
	next    Mailer
	limiter *rate.Limiter
}

// NewLimited allows perSecond sends with the given burst; perSecond <= 0 disables pacing.
func NewLimited(next Mailer, perSecond float64, burst int) *Limited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (m *Limited) Send(ctx context.Context, to, template string, vars map[string]string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		observability.MailDeliveries.WithLabelValues(template, "throttled").Inc()
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	err := m.next.Send(ctx, to, template, vars)
	observability.MailDeliveries.WithLabelValues(template, observability.Outcome(err)).Inc()
	return err
}
