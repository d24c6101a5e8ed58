package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/internal/common/util"
)

const RequestIdHeader = "X-Request-Id"

type suppressUnauthorizedKey struct{}

// WithoutUnauthorizedHooks marks requests made with ctx as ones whose 401 answers concern the
// submitted credentials rather than the session, e.g. a login with a wrong password.
func WithoutUnauthorizedHooks(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressUnauthorizedKey{}, true)
}

func unauthorizedHooksSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressUnauthorizedKey{}).(bool)
	return v
}

type ApiConnectionDetails struct {
	// Base url of the backend, e.g. https://compute.example.com
	BaseUrl string `validate:"required,url"`
	// Timeout of ordinary requests.
	Timeout time.Duration `validate:"gt=0"`
	// Timeout of result downloads, which may be large.
	DownloadTimeout time.Duration `validate:"gt=0"`
	// Timeout of a single upload chunk request.
	UploadTimeout time.Duration `validate:"gt=0"`
	// Size of the parts large files are split into.
	ChunkSize resource.Quantity
	// Number of additional attempts for GET requests that failed without a response.
	GetRetries uint
	// Where the session credential is kept between runs: keyring or memory.
	TokenStore string `validate:"oneof=keyring memory"`
}

// ChunkSizeBytes returns the configured chunk size, falling back to DefaultChunkSize.
func (d *ApiConnectionDetails) ChunkSizeBytes() int64 {
	if n := d.ChunkSize.Value(); n > 0 {
		return n
	}
	return DefaultChunkSize
}

// DefaultChunkSize is 100 MiB.
const DefaultChunkSize int64 = 100 * 1024 * 1024

// Connection sends requests to the backend on behalf of one client context, attaching the
// credential held in its TokenJar. Safe for concurrent use.
type Connection struct {
	details    *ApiConnectionDetails
	baseUrl    *url.URL
	httpClient *http.Client
	tokens     *TokenJar

	mu             sync.RWMutex
	onUnauthorized []func()
}

type ConnectionOption func(*Connection)

// WithHTTPClient replaces the default http.Client. Timeouts are applied per request via contexts,
// so the client's own Timeout should normally be left zero.
func WithHTTPClient(c *http.Client) ConnectionOption {
	return func(conn *Connection) {
		conn.httpClient = c
	}
}

func NewConnection(details *ApiConnectionDetails, tokens *TokenJar, opts ...ConnectionOption) (*Connection, error) {
	if details == nil {
		return nil, errors.New("connection details must be provided")
	}
	u, err := url.Parse(strings.TrimRight(details.BaseUrl, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", details.BaseUrl)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid base url %q: scheme must be http or https", details.BaseUrl)
	}
	if tokens == nil {
		tokens = NewTokenJar(Token{})
	}
	conn := &Connection{
		details:    details,
		baseUrl:    u,
		httpClient: &http.Client{},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(conn)
	}
	return conn, nil
}

func (c *Connection) Details() *ApiConnectionDetails {
	return c.details
}

func (c *Connection) Tokens() *TokenJar {
	return c.tokens
}

// OnUnauthorized registers fn to run whenever any request is answered with HTTP 401.
func (c *Connection) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// GetJSON issues a GET and decodes the JSON response into out. Requests that fail without a
// response are retried GetRetries times.
func (c *Connection) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return retry.Do(
		func() error {
			return c.doJSON(ctx, c.details.Timeout, http.MethodGet, path, nil, "", out)
		},
		retry.Attempts(c.details.GetRetries+1),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(isTransportError),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithField("path", path).Debugf("retrying request, attempt %d", n+2)
		}),
	)
}

// PostJSON issues a POST with body encoded as JSON (or an empty body when nil) and decodes the
// JSON response into out. POSTs are never retried.
func (c *Connection) PostJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.WithStack(err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.doJSON(ctx, c.details.Timeout, http.MethodPost, path, reader, contentType, out)
}

// PostMultipart streams form to path and decodes the JSON response into out. A non-positive
// timeout falls back to the connection's default timeout.
func (c *Connection) PostMultipart(ctx context.Context, path string, form *Form, timeout time.Duration, out interface{}) error {
	if timeout <= 0 {
		timeout = c.details.Timeout
	}
	body, contentType := form.Reader()
	defer body.Close()
	return c.doJSON(ctx, timeout, http.MethodPost, path, body, contentType, out)
}

// Download streams the body of a GET on path into w, bounded by DownloadTimeout.
func (c *Connection) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	ctx, cancel := common.ContextWithTimeout(ctx, c.details.DownloadTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := c.checkResponse(ctx, resp); err != nil {
		return 0, err
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &apierrors.ErrTransport{Method: http.MethodGet, Path: path, Cause: err}
	}
	return n, nil
}

func (c *Connection) doJSON(ctx context.Context, timeout time.Duration, method, path string, body io.Reader, contentType string, out interface{}) error {
	ctx, cancel := common.ContextWithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := c.checkResponse(ctx, resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierrors.ErrTransport{Method: method, Path: path, Cause: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "invalid response from %s %s", method, path)
	}
	return nil
}

func (c *Connection) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestId := util.NewRequestId()
	req.Header.Set(RequestIdHeader, requestId)
	c.tokens.Attach(req)

	logger := log.WithFields(log.Fields{"method": method, "path": path, "request_id": requestId})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Debug("request failed")
		return nil, &apierrors.ErrTransport{Method: method, Path: path, Cause: err}
	}
	logger.WithFields(log.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)}).Debug("request completed")
	c.tokens.Capture(resp)
	return resp, nil
}

func (c *Connection) checkResponse(ctx context.Context, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	err := apierrors.FromResponse(resp.StatusCode, extractMessage(raw))
	if resp.StatusCode == http.StatusUnauthorized && !unauthorizedHooksSuppressed(ctx) {
		c.mu.RLock()
		hooks := append([]func(){}, c.onUnauthorized...)
		c.mu.RUnlock()
		for _, hook := range hooks {
			hook()
		}
	}
	return err
}

func (c *Connection) resolve(path string) string {
	u := *c.baseUrl
	rel, err := url.Parse(path)
	if err != nil {
		u.Path = u.Path + path
		return u.String()
	}
	u.Path = u.Path + rel.Path
	u.RawQuery = rel.RawQuery
	return u.String()
}

// extractMessage returns the "message" or "detail" field of a JSON error body.
func extractMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return detail
	}
	return ""
}

func isTransportError(err error) bool {
	var e *apierrors.ErrTransport
	if !errors.As(err, &e) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
