package devin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://api.devin.ai/v1"
	DefaultAppURL  = "https://app.devin.ai"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	AppURL     string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the session REST API with bearer authentication.
type Client struct {
	baseURL    string
	appURL     string
	apiKey     string
	httpClient *http.Client
}

// New creates a client. Empty fields in cfg fall back to the public
// endpoints and a 60 second timeout.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AppURL == "" {
		cfg.AppURL = DefaultAppURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appURL:     strings.TrimRight(cfg.AppURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// AppURL is the web application root used for session and attachment links.
func (c *Client) AppURL() string {
	return c.appURL
}

// WebURL is the browser address of a session.
func (c *Client) WebURL(sessionID string) string {
	return WebURL(c.appURL, sessionID)
}

// do sends one request and returns the response body. Any non-2xx status is
// returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	slog.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return respBody, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// GetSession fetches the detail view of one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &s); err != nil {
		return nil, err
	}
	if s.SessionID == "" {
		s.SessionID = sessionID
	}
	return &s, nil
}

// ListSessions returns sessions newest first, at most limit of them when
// limit is positive. The endpoint may answer with a bare array or with an
// object holding a "sessions" array.
func (c *Client) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	data, err := c.do(ctx, http.MethodGet, "/sessions", nil)
	if err != nil {
		return nil, err
	}
	sessions, err := decodeList[Session](data, "sessions")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt > sessions[j].CreatedAt
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// CreateSession starts a new session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	var out CreateSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAttachment downloads an attachment as text. Redirects to storage are
// followed by the HTTP client.
func (c *Client) GetAttachment(ctx context.Context, ref AttachmentRef) (string, error) {
	data, err := c.do(ctx, http.MethodGet, ref.path(), nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CreateKnowledge creates one knowledge item.
func (c *Client) CreateKnowledge(ctx context.Context, req KnowledgeRequest) (*Knowledge, error) {
	var out Knowledge
	if err := c.doJSON(ctx, http.MethodPost, "/knowledge", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPlaybooks returns every playbook visible to the organization.
func (c *Client) ListPlaybooks(ctx context.Context) ([]Playbook, error) {
	data, err := c.do(ctx, http.MethodGet, "/playbooks", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Playbook](data, "playbooks")
}

// UpdatePlaybook replaces a playbook's title, body and macro and returns the
// server's response as-is.
func (c *Client) UpdatePlaybook(ctx context.Context, playbookID string, req PlaybookRequest) (Document, error) {
	data, err := c.do(ctx, http.MethodPut, "/playbooks/"+url.PathEscape(playbookID), req)
	if err != nil {
		return Document{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}
	return ParseDocument(data)
}

// decodeList accepts either a JSON array or an object carrying the array
// under key.
func decodeList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedFormat)
	}
	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		return items, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		raw, ok := wrapper[key]
		if !ok {
			return []T{}, nil
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %q is not a list", ErrUnexpectedFormat, key)
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: %.80s", ErrUnexpectedFormat, trimmed)
}
