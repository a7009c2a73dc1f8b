package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/cognidocs/internal/models"
)

// Client talks to a running CogniDocs server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Query asks a question.
func (c *Client) Query(ctx context.Context, req *models.QueryRequest) (*models.Answer, error) {
	var ans models.Answer
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/query", req, http.StatusOK, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*StatusReport, error) {
	var st StatusReport
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/status", nil, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Documents lists document records.
func (c *Client) Documents(ctx context.Context) ([]*models.DocumentRecord, error) {
	var out struct {
		Documents []*models.DocumentRecord `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// Upload sends the files at paths in one multipart request. A response describing per-file
// failures is returned together with a nil error; only transport and request-level problems fail.
func (c *Client) Upload(ctx context.Context, paths []string) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filepath.Base(p)))
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out models.UploadResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Results == nil {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &out, nil
}

// WatchDirectories lists the server's inbox directories.
func (c *Client) WatchDirectories(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/watch/directories", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// AddWatchDirectory adds an inbox directory; PDFs already in it are ingested when sync is set.
func (c *Client) AddWatchDirectory(ctx context.Context, path string, sync bool) error {
	body := map[string]interface{}{"path": path, "sync": sync}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/watch/directories", body, http.StatusCreated, nil)
}

// RemoveWatchDirectory stops watching an inbox directory.
func (c *Client) RemoveWatchDirectory(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), nil, http.StatusOK, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}, want int, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, serverMessage(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// serverMessage extracts the "error" field of a JSON error body, or returns the raw body.
func serverMessage(b []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}
