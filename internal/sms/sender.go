package sms

import (
	"context"
	"errors"
)

// Sender define la interfaz de despacho de SMS consumida por el core.
type Sender interface {
	Send(ctx context.Context, toNumber, body string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _ string) error {
	if s.reason == "" {
		return errors.New("sms sender disabled")
	}
	return errors.New(s.reason)
}
