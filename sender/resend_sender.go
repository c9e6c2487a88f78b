package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendBaseURL = "https://api.resend.com"

// ResendSender implements EmailSender using the Resend API, which supports
// scheduled delivery and cancellation of not-yet-delivered messages.
type ResendSender struct {
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewResendSender creates a new ResendSender.
func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY not set")
	}
	return &ResendSender{
		apiKey: apiKey,
		from:   from,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// ---- Resend API request/response structs ----

type resendEmailRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
}

type resendEmailResponse struct {
	ID string `json:"id"`
}

type resendErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send submits the email to Resend and returns the provider message id.
func (s *ResendSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	reqBody := resendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	if msg.SendAt != nil {
		reqBody.ScheduledAt = msg.SendAt.UTC().Format(time.RFC3339)
	}

	var resp resendEmailResponse
	if err := s.do(ctx, http.MethodPost, "/emails", reqBody, &resp); err != nil {
		return SendResult{}, err
	}
	if resp.ID == "" {
		return SendResult{}, fmt.Errorf("resend returned empty message id")
	}

	return SendResult{MessageID: resp.ID, SentAt: time.Now()}, nil
}

// Cancel asks Resend to drop a scheduled email. Already-delivered messages
// cannot be recalled; that error propagates to the caller to log.
func (s *ResendSender) Cancel(ctx context.Context, messageID string) error {
	return s.do(ctx, http.MethodPost, "/emails/"+messageID+"/cancel", nil, nil)
}

func (s *ResendSender) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, resendBaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read resend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr resendErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("resend %s %s: %s (%s)", method, path, apiErr.Message, apiErr.Name)
		}
		return fmt.Errorf("resend %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode resend response: %w", err)
		}
	}
	return nil
}
