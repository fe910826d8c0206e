// Package artifactory moves artifacts between two Artifactory-style
// repositories by downloading from one and uploading to the other.
package artifactory

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Endpoint is one repository on a server.
type Endpoint struct {
	URL      string
	Repo     string
	User     string
	Password string
}

// ArtifactURL is the full address of artifactPath in the repository.
func (e Endpoint) ArtifactURL(artifactPath string) string {
	return strings.TrimRight(e.URL, "/") + "/" + strings.Trim(e.Repo, "/") + "/" + strings.TrimLeft(artifactPath, "/")
}

// HTTPError is a non-2xx response from a repository.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error (status %d) for %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}

// Client talks to one repository with basic authentication.
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithInsecureTLS disables certificate verification, for servers with
// internal certificates.
func WithInsecureTLS() Option {
	return func(c *Client) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		c.httpClient.Transport = tr
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the repository this client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

func (c *Client) newRequest(ctx context.Context, method, artifactPath string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.ArtifactURL(artifactPath), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.endpoint.User != "" || c.endpoint.Password != "" {
		req.SetBasicAuth(c.endpoint.User, c.endpoint.Password)
	}
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		Body:       strings.TrimSpace(string(body)),
	}
}

// Download is a file fetched to local disk.
type Download struct {
	LocalPath string
	Size      int64
	SHA256    string
}

// Download streams artifactPath into dir under the same relative path, so
// artifacts sharing a file name never share a local file. It returns the
// size and checksum.
func (c *Client) Download(ctx context.Context, artifactPath, dir string) (*Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, artifactPath, nil)
	if err != nil {
		return nil, err
	}
	slog.Debug("downloading artifact", "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	local := LocalPath(dir, artifactPath)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	f, err := os.Create(local)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", local, err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(local)
		return nil, fmt.Errorf("write %s: %w", local, err)
	}
	return &Download{LocalPath: local, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// LocalPath is where Download stores artifactPath under dir. The path is
// cleaned as if rooted, so ".." elements cannot leave dir.
func LocalPath(dir, artifactPath string) string {
	return filepath.Join(dir, filepath.FromSlash(path.Clean("/"+artifactPath)))
}

// Upload puts the local file at artifactPath. When sum is non-empty it is
// sent as the X-Checksum-Sha256 header.
func (c *Client) Upload(ctx context.Context, artifactPath, local, sum string) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open %s: %w", local, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", local, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, artifactPath, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if sum != "" {
		req.Header.Set("X-Checksum-Sha256", sum)
	}
	slog.Debug("uploading artifact", "url", req.URL.String(), "bytes", info.Size())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
