package scores

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrRejected = errors.New("score rejected")

// RESTSink inserts results into a PostgREST-style game_scores table.
type RESTSink struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRESTSink targets {baseURL}/rest/v1/game_scores. A nil client uses
// http.DefaultClient.
func NewRESTSink(baseURL, apiKey string, client *http.Client) *RESTSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTSink{
		endpoint: strings.TrimRight(baseURL, "/") + "/rest/v1/game_scores",
		apiKey:   apiKey,
		client:   client,
	}
}

func (s *RESTSink) Submit(ctx context.Context, r Result) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post score: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

func (s *RESTSink) Close() error { return nil }
