package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
)

// HTTPDeliverer posts the report request to an external report server.
type HTTPDeliverer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDeliverer constructs a deliverer for endpoint.
func NewHTTPDeliverer(endpoint string, client *http.Client) *HTTPDeliverer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDeliverer{endpoint: strings.TrimSpace(endpoint), client: client}
}

type sendReportRequest struct {
	Meeting    json.RawMessage `json:"meeting"`
	Recipients []string        `json:"recipients"`
	Link       string          `json:"link"`
}

// DeliverReport posts {meeting, recipients, link} and expects a 2xx reply.
func (d *HTTPDeliverer) DeliverReport(ctx context.Context, meeting domain.Meeting, recipients []string, shareLink string) error {
	if len(recipients) == 0 {
		return app.ErrNoRecipients
	}
	encoded, err := app.MarshalMeeting(meeting)
	if err != nil {
		return fmt.Errorf("encode meeting: %w", err)
	}
	body, err := json.Marshal(sendReportRequest{Meeting: encoded, Recipients: recipients, Link: shareLink})
	if err != nil {
		return fmt.Errorf("encode report request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("report server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
