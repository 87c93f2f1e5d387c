package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"duvidapp/internal"
	"duvidapp/internal/errors"

	"github.com/tidwall/gjson"
)

// Paths that may be called without a bearer token
var publicPaths = map[string]bool{
	"/auth/login":    true,
	"/auth/register": true,
}

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Metrics *Metrics
	Logger  *internal.Logger

	// HTTPClient overrides the transport, mostly for tests
	HTTPClient *http.Client
}

// Client performs authenticated JSON requests against the DuvidApp backend.
// It holds no state beyond its configuration and never retries.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *Metrics
	logger     *internal.Logger
}

// NewClient creates a new backend client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     logger.WithField("component", "remote"),
	}
}

// BaseURL returns the backend root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request sends a JSON request. Every path except login and register requires a
// token; a missing token fails with an Unauthenticated error before any I/O.
func (c *Client) Request(ctx context.Context, method, path string, body any, token string) ([]byte, error) {
	return c.Do(ctx, method, path, body, token, !publicPaths[path])
}

// Do sends a JSON request, requiring a token only when auth is set
func (c *Client) Do(ctx context.Context, method, path string, body any, token string, auth bool) ([]byte, error) {
	if auth && token == "" {
		return nil, errors.Unauthenticated("sessão expirada, faça login novamente")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	route := routeOf(path)
	done := c.metrics.begin(method)

	c.logger.Debug("[Remote] %s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		done(route, 0)
		c.logger.Warn("[Remote] %s %s failed: %v", method, path, err)
		return nil, errors.NetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	done(route, resp.StatusCode)
	if err != nil {
		return nil, errors.NetworkError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &errors.HTTPError{
			Status:  resp.StatusCode,
			Message: errorMessage(method, respBody),
		}
		c.logger.Info("[Remote] %s %s returned %d: %s", method, path, resp.StatusCode, httpErr.Message)
		return nil, httpErr
	}

	return respBody, nil
}

// errorMessage extracts the backend's message field, falling back to a
// method-specific text.
func errorMessage(method string, body []byte) string {
	if gjson.ValidBytes(body) {
		msg := gjson.GetBytes(body, "message")
		switch {
		case msg.IsArray():
			parts := make([]string, 0, len(msg.Array()))
			for _, item := range msg.Array() {
				if s := strings.TrimSpace(item.String()); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		case msg.Type == gjson.String && strings.TrimSpace(msg.Str) != "":
			return msg.Str
		}
	}
	return genericMessage(method)
}

func genericMessage(method string) string {
	switch method {
	case http.MethodGet:
		return "Falha ao buscar dados do servidor."
	case http.MethodPost:
		return "Falha ao enviar dados ao servidor."
	case http.MethodPut, http.MethodPatch:
		return "Falha ao atualizar dados no servidor."
	case http.MethodDelete:
		return "Falha ao remover dados do servidor."
	default:
		return "Falha na comunicação com o servidor."
	}
}

// routeOf collapses identifiers in path so metric labels stay bounded
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if i == 0 {
			continue
		}
		switch seg {
		case "login", "register", "verify", "like", "dislike":
		default:
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}
