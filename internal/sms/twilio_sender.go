package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioSender envia SMS via la API REST de mensajes de Twilio.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

func NewTwilioSender(accountSID, authToken, fromNumber, baseURL string) (*TwilioSender, error) {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("sms credentials are required")
	}
	if strings.TrimSpace(fromNumber) == "" {
		return nil, fmt.Errorf("sms from number is required")
	}
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *TwilioSender) Send(ctx context.Context, toNumber, body string) error {
	toNumber = strings.TrimSpace(toNumber)
	if toNumber == "" {
		return fmt.Errorf("to number is required")
	}
	if !strings.HasPrefix(toNumber, "+") {
		toNumber = "+" + toNumber
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", s.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms http error: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}
