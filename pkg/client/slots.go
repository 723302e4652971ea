package client

import (
	"context"
	"fmt"
	"net/url"
)

// SlotsClient is a typed client for the public booking API.
type SlotsClient struct {
	httpClient *HttpClient
}

func NewSlotsClient(baseURL string) *SlotsClient {
	return &SlotsClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *SlotsClient) ListSlots(ctx context.Context, hospitalID, date string) (*Response, error) {
	q := url.Values{}
	q.Set("date", date)
	path := "/api/v1/slots/" + url.PathEscape(hospitalID) + "?" + q.Encode()
	return c.httpClient.GET(ctx, path)
}

func (c *SlotsClient) Window(ctx context.Context, hospitalID, from string, days int) (*Response, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if days > 0 {
		q.Set("days", fmt.Sprintf("%d", days))
	}
	path := "/api/v1/slots/window/" + url.PathEscape(hospitalID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *SlotsClient) Lock(ctx context.Context, slotID, sessionID string) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/slots/lock", map[string]string{
		"slotId":    slotID,
		"sessionId": sessionID,
	})
}

func (c *SlotsClient) ReleaseLock(ctx context.Context, lockID string) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/api/v1/slots/lock/"+url.PathEscape(lockID))
}

// Confirm posts the confirmation with an idempotency key so a retried call replays the first result.
func (c *SlotsClient) Confirm(ctx context.Context, lockID string, details any, idempotencyKey string) (*Response, error) {
	body := map[string]any{
		"lockId":         lockID,
		"bookingDetails": details,
	}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	return c.httpClient.POSTWithHeaders(ctx, "/api/v1/confirm", body, headers)
}
