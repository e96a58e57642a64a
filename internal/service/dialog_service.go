package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/avolkov/sonet/internal/config"
)

// DialogResult is the proxied response of the dialogs microservice
type DialogResult struct {
	StatusCode int
	Body       []byte
}

// DialogService proxies dialog operations to the sibling dialogs service,
// propagating the request id so a conversation can be traced across both.
type DialogService interface {
	SendMessage(ctx context.Context, requestID string, from, to uuid.UUID, text string) (*DialogResult, error)
	ListMessages(ctx context.Context, requestID string, from, to uuid.UUID, offset, limit int) (*DialogResult, error)
}

// dialogService implements DialogService
type dialogService struct {
	baseURL string
	client  *http.Client
}

// NewDialogService creates a dialog proxy client
func NewDialogService(cfg *config.DialogsConfig) DialogService {
	return &dialogService{
		baseURL: cfg.ServiceURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *dialogService) SendMessage(ctx context.Context, requestID string, from, to uuid.UUID, text string) (*DialogResult, error) {
	body := fmt.Sprintf(`{"text":%q}`, text)
	path := fmt.Sprintf("/dialog/%s/send", to)
	return s.do(ctx, http.MethodPost, path, nil, requestID, from, bytes.NewBufferString(body))
}

func (s *dialogService) ListMessages(ctx context.Context, requestID string, from, to uuid.UUID, offset, limit int) (*DialogResult, error) {
	path := fmt.Sprintf("/dialog/%s/list", to)
	query := url.Values{}
	query.Set("offset", fmt.Sprintf("%d", offset))
	query.Set("limit", fmt.Sprintf("%d", limit))
	return s.do(ctx, http.MethodGet, path, query, requestID, from, nil)
}

func (s *dialogService) do(ctx context.Context, method, path string, query url.Values, requestID string, from uuid.UUID, body io.Reader) (*DialogResult, error) {
	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build dialog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", requestID)
	req.Header.Set("x-user-id", from.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dialog service call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialog response: %w", err)
	}

	return &DialogResult{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}
