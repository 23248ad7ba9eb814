package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ secondary.ActivityBackend = (*Client)(nil)

// errNotFound is mapped per operation
var errNotFound = errors.New("not found")

const maxErrorBody = 512

type Client struct {
	baseURL      string
	serviceToken string
	http         *http.Client
	logger       primary.Logger
}

func NewClient(cfg *config.BackendConfig, logger primary.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		serviceToken: cfg.ServiceToken,
		http:         &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}
}

func (c *Client) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	var activity domain.Activity
	err := c.do(ctx, "get activity", http.MethodGet, c.activityPath(activityID, ""), nil, nil, &activity)
	if errors.Is(err, errNotFound) {
		return nil, errs.ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (c *Client) GetItems(ctx context.Context, activityID string) ([]domain.Item, error) {
	var items []domain.Item
	err := c.do(ctx, "get items", http.MethodGet, c.activityPath(activityID, "/items"), nil, nil, &items)
	if errors.Is(err, errNotFound) {
		return nil, errs.ErrActivityNotFound
	}
	return items, err
}

func (c *Client) GetProgress(ctx context.Context, key domain.AttemptKey) (*domain.ServerProgress, error) {
	var progress domain.ServerProgress
	err := c.do(ctx, "get progress", http.MethodGet, c.progressPath(key), nil, nil, &progress)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (c *Client) SaveProgress(ctx context.Context, key domain.AttemptKey, progress *domain.ServerProgress) error {
	return c.do(ctx, "save progress", http.MethodPut, c.progressPath(key), nil, progress, nil)
}

func (c *Client) ClearProgress(ctx context.Context, key domain.AttemptKey) error {
	err := c.do(ctx, "clear progress", http.MethodDelete, c.progressPath(key), nil, nil, nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

// Submit is idempotent on SubmissionID; a conflict means the backend already
// holds this submission.
func (c *Client) Submit(ctx context.Context, payload *domain.SubmissionPayload) error {
	headers := map[string]string{"Idempotency-Key": payload.SubmissionID.String()}
	err := c.do(ctx, "submit", http.MethodPost, c.activityPath(payload.ActivityID, "/submissions"), headers, payload, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		c.logger.Debug("Submission already recorded", "submissionId", payload.SubmissionID)
		return nil
	}
	return err
}

func (c *Client) DeleteSubmission(ctx context.Context, key domain.AttemptKey) error {
	path := c.activityPath(key.ActivityID, "/submissions") + "?user_id=" + url.QueryEscape(key.UserID)
	err := c.do(ctx, "delete submission", http.MethodDelete, path, nil, nil, nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

func (c *Client) activityPath(activityID, suffix string) string {
	return c.baseURL + "/activities/" + url.PathEscape(activityID) + suffix
}

func (c *Client) progressPath(key domain.AttemptKey) string {
	return c.activityPath(key.ActivityID, "/progress") + "?user_id=" + url.QueryEscape(key.UserID)
}

// statusError is a non-2xx response the caller may want to inspect
type statusError struct {
	op   string
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.op, e.code, e.body)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.NewNetworkError(op, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 500:
		return errs.NewNetworkError(op, resp.StatusCode, errors.New(readSnippet(resp.Body)))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &statusError{op: op, code: resp.StatusCode, body: readSnippet(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.NewNetworkError(op, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if token := tokenFrom(ctx); token != "" {
		return token
	}
	return c.serviceToken
}

func readSnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}
