// Package mail delivers account emails to an outbound transport.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// PasswordReset is the message sent when a user asks to reset their password.
type PasswordReset struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

const (
	kindPasswordReset    = "password_reset"
	passwordResetSubject = "Password Reset"
)

// Mailer sends account emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, msg PasswordReset) error
}

// Publisher is the queue side of QueueMailer; *rabbitmq.Client satisfies it.
type Publisher interface {
	PublishJSON(v interface{}) error
}

// QueueMailer hands messages to a queue consumed by a separate mail worker.
type QueueMailer struct {
	publisher Publisher
	logger    logrus.FieldLogger
}

// NewQueueMailer creates a Mailer publishing to a message queue.
func NewQueueMailer(publisher Publisher, logger logrus.FieldLogger) *QueueMailer {
	return &QueueMailer{publisher: publisher, logger: logger}
}

// SendPasswordReset enqueues the reset message.
func (m *QueueMailer) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.Kind = kindPasswordReset
	if msg.Subject == "" {
		msg.Subject = passwordResetSubject
	}
	if err := m.publisher.PublishJSON(msg); err != nil {
		return fmt.Errorf("failed to enqueue password reset mail: %w", err)
	}
	m.logger.WithField("to", msg.To).Info("password reset mail queued")
	return nil
}

// LogMailer writes messages to the log instead of delivering them. Used in development.
type LogMailer struct {
	logger logrus.FieldLogger
}

// NewLogMailer creates a Mailer that only logs.
func NewLogMailer(logger logrus.FieldLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the reset URL.
func (m *LogMailer) SendPasswordReset(_ context.Context, msg PasswordReset) error {
	m.logger.WithFields(logrus.Fields{
		"to":         msg.To,
		"subject":    passwordResetSubject,
		"reset_url":  msg.ResetURL,
		"expires_at": msg.ExpiresAt,
	}).Info("password reset mail")
	return nil
}
