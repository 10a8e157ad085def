// Package upstream is the HTTP transport adapter for the municipal API. It
// implements the SubmissionAPI, RegionCatalog and ProfileStore contracts,
// owns the transport-level concerns the core stays free of (auth header,
// circuit breaking, retries on idempotent reads) and maps upstream failures
// to structured remote errors.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/metrics"
	"github.com/openmahalla/portalcore/internal/platform/requestid"
	"github.com/openmahalla/portalcore/internal/platform/retry"
)

const (
	defaultTimeout     = 15 * time.Second
	readRetryAttempts  = 3
	readInitialBackoff = 100 * time.Millisecond
)

// Client talks to the municipal API. One instance is shared process-wide.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	readPolicy retry.Policy
}

// NewClient creates the upstream client. token may be empty when the
// deployment fronts an unauthenticated upstream.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "upstream",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		readPolicy: retry.Policy{
			MaxAttempts:    readRetryAttempts,
			InitialBackoff: readInitialBackoff,
		},
	}
}

func basePath(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindRequest:
		return "/api/requests", nil
	case domain.KindServiceReport:
		return "/api/service-reports", nil
	case domain.KindMskOrder:
		return "/api/msk/orders", nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("unknown submission kind %q", kind))
	}
}

// --- SubmissionAPI ---

func (c *Client) Create(ctx context.Context, kind domain.Kind, payload domain.CreateSubmission) (*domain.Submission, error) {
	base, err := basePath(kind)
	if err != nil {
		return nil, err
	}
	var sub domain.Submission
	if err := c.do(ctx, "submissions.create", http.MethodPost, base, nil, payload, &sub); err != nil {
		return nil, err
	}
	sub.Kind = kind
	return &sub, nil
}

func (c *Client) ListMine(ctx context.Context, kind domain.Kind) ([]domain.Submission, error) {
	base, err := basePath(kind)
	if err != nil {
		return nil, err
	}
	list, err := readWithRetry(ctx, c, func() ([]domain.Submission, error) {
		var out []domain.Submission
		if err := c.do(ctx, "submissions.list", http.MethodGet, base+"/my", nil, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Kind = kind
	}
	return list, nil
}

func (c *Client) Update(ctx context.Context, kind domain.Kind, id string, patch domain.SubmissionPatch) (*domain.Submission, error) {
	base, err := basePath(kind)
	if err != nil {
		return nil, err
	}
	var sub domain.Submission
	if err := c.do(ctx, "submissions.update", http.MethodPut, base+"/"+id, nil, patch, &sub); err != nil {
		return nil, err
	}
	sub.Kind = kind
	return &sub, nil
}

func (c *Client) Cancel(ctx context.Context, kind domain.Kind, id string, reason string) (*domain.Submission, error) {
	base, err := basePath(kind)
	if err != nil {
		return nil, err
	}
	body := map[string]string{}
	if reason != "" {
		body["cancelReason"] = reason
	}
	var sub domain.Submission
	if err := c.do(ctx, "submissions.cancel", http.MethodPut, base+"/"+id+"/cancel", nil, body, &sub); err != nil {
		return nil, err
	}
	sub.Kind = kind
	return &sub, nil
}

func (c *Client) Confirm(ctx context.Context, kind domain.Kind, id string, confirmed bool) (*domain.Submission, error) {
	base, err := basePath(kind)
	if err != nil {
		return nil, err
	}
	var sub domain.Submission
	if err := c.do(ctx, "submissions.confirm", http.MethodPut, base+"/"+id+"/confirm", nil, map[string]bool{"confirmed": confirmed}, &sub); err != nil {
		return nil, err
	}
	sub.Kind = kind
	return &sub, nil
}

// --- RegionCatalog ---

func (c *Client) ListGeoNodes(ctx context.Context, nodeType domain.GeoNodeType, parentID string) ([]domain.GeoNode, error) {
	query := url.Values{"type": {string(nodeType)}}
	if parentID != "" {
		query.Set("parent", parentID)
	}
	return readWithRetry(ctx, c, func() ([]domain.GeoNode, error) {
		var out []domain.GeoNode
		if err := c.do(ctx, "regions.list", http.MethodGet, "/api/regions", query, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// --- ProfileStore ---

func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return readWithRetry(ctx, c, func() (*domain.Profile, error) {
		var out domain.Profile
		if err := c.do(ctx, "profile.get", http.MethodGet, "/api/users/me", nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func (c *Client) SaveAddress(ctx context.Context, address domain.Address) error {
	return c.do(ctx, "profile.saveAddress", http.MethodPut, "/api/users/region", nil, address, nil)
}

// readWithRetry retries idempotent reads on transport failures and 5xx
// responses. Client-side rejections (4xx) stop immediately.
func readWithRetry[T any](ctx context.Context, c *Client, op func() (T, error)) (T, error) {
	val, err := retry.Do(ctx, c.readPolicy, classifyRemote, op)
	if err != nil {
		var permanent *retry.PermanentError
		var zero T
		if errors.As(err, &permanent) {
			return zero, permanent.Err
		}
		return zero, err
	}
	return val, nil
}

func classifyRemote(err error) retry.Action {
	structured := apperrors.AsStructuredError(err)
	if structured.Type != apperrors.TypeRemote {
		return retry.Stop
	}
	if status, ok := structured.Context["status"].(int); ok && status >= 400 && status < 500 {
		return retry.Stop
	}
	return retry.Retry
}

// upstreamError is the error body shape the municipal API uses.
type upstreamError struct {
	Message string `json:"message"`
}

// do executes one request through the circuit breaker and decodes the JSON
// response into out (when non-nil). Failures come back as structured remote
// errors carrying the upstream's message when it supplied one.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal("failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return apperrors.Internal("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	id, ok := requestid.From(ctx)
	if !ok {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.httpClient.Do(req)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return apperrors.Remote("service temporarily unavailable", err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		message := "the service could not process the request"
		var parsed upstreamError
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Message != "" {
			message = parsed.Message
		}
		return apperrors.Remote(message, fmt.Errorf("upstream returned %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("operation", op)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(op, "success").Inc()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Remote("the service returned an unreadable response", err)
	}
	return nil
}
