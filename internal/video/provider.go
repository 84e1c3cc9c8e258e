package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Meeting is what the conferencing provider hands back for one booking.
// Empty URLs are allowed; callers substitute their own placeholder paths.
type Meeting struct {
	JoinURL           string
	HostURL           string
	ProviderMeetingID string
}

// Provider creates a meeting for a booking.
type Provider interface {
	CreateMeeting(ctx context.Context, bookingID string) (Meeting, error)
}

var ErrProviderUnavailable = errors.New("video provider unavailable")

// HTTPProvider talks to a conferencing REST endpoint:
// POST {baseURL}/meetings {"external_id": "<booking id>"}.
type HTTPProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type createMeetingRequest struct {
	ExternalID string `json:"external_id"`
}

type createMeetingResponse struct {
	ID      string `json:"id"`
	JoinURL string `json:"join_url"`
	HostURL string `json:"host_url"`
}

func (p *HTTPProvider) CreateMeeting(ctx context.Context, bookingID string) (Meeting, error) {
	body, err := json.Marshal(createMeetingRequest{ExternalID: bookingID})
	if err != nil {
		return Meeting{}, fmt.Errorf("encode meeting request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/meetings", bytes.NewReader(body))
	if err != nil {
		return Meeting{}, fmt.Errorf("build meeting request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Meeting{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Meeting{}, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Meeting{}, fmt.Errorf("decode meeting response failed: %w", err)
	}

	return Meeting{
		JoinURL:           out.JoinURL,
		HostURL:           out.HostURL,
		ProviderMeetingID: out.ID,
	}, nil
}

// PlaceholderProvider is used when no provider is configured. It returns an
// empty meeting so bookings get in-app placeholder links.
type PlaceholderProvider struct{}

func (PlaceholderProvider) CreateMeeting(context.Context, string) (Meeting, error) {
	return Meeting{}, nil
}
