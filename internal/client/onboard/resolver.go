package onboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onboardkit/onboardkit/internal/models"
	"go.uber.org/zap"
)

// DefaultConfigURL is the fixed global endpoint the backend domain is
// fetched from. It is re-fetched on every ShowOnboarding call; backend
// domains are never cached across sessions.
const DefaultConfigURL = "https://config.onboardkit.io/v1/config"

// defaultHTTPTimeout bounds each resolution call so a hung request cannot
// hang the pipeline indefinitely.
const defaultHTTPTimeout = 15 * time.Second

// Resolver performs the two-step handshake that turns (project, secret,
// device) into a concrete onboarding URL. Both steps are plain GETs; the
// second depends on the first's result, so they never run concurrently.
// There is no retry and no caching: any failure aborts the attempt and the
// controller routes it to the fallback screen.
type Resolver struct {
	// Client issues the requests. Callers may inject their own; the default
	// carries a 15s timeout.
	Client *http.Client
	// ConfigURL is the global config endpoint, overridable for tests.
	ConfigURL string
	// Logger records resolution progress. The secret key is never logged.
	Logger *zap.Logger
}

// NewResolver returns a Resolver with the default client and endpoint.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		Client:    &http.Client{Timeout: defaultHTTPTimeout},
		ConfigURL: DefaultConfigURL,
		Logger:    logger,
	}
}

// FetchBackendDomain asks the global config endpoint for the project's
// backend domain, authenticating with the secret key.
func (r *Resolver) FetchBackendDomain(ctx context.Context, projectID, secretKey string) (string, error) {
	u, err := url.Parse(r.ConfigURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	q := u.Query()
	q.Set("apiKey", secretKey)
	q.Set("projectId", projectID)
	u.RawQuery = q.Encode()

	r.Logger.Debug("fetching backend domain", zap.String("projectId", projectID))

	status, body, err := r.get(ctx, u.String())
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &ConfigFetchError{Status: status, Body: body}
	}

	var cfg models.ConfigResponse
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if cfg.BackendDomain == "" {
		return "", ErrEmptyBackendDomain
	}
	return cfg.BackendDomain, nil
}

// ResolveFlowID asks the project's backend which flow the device should
// see. A 404 is the distinguished ErrNoFlowConfigured outcome.
func (r *Resolver) ResolveFlowID(ctx context.Context, backendDomain, projectID, deviceID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(backendDomain, "/") + "/api/onboarding/resolve")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	q := u.Query()
	q.Set("projectId", projectID)
	q.Set("deviceId", deviceID)
	u.RawQuery = q.Encode()

	r.Logger.Debug("resolving flow",
		zap.String("projectId", projectID),
		zap.String("deviceId", deviceID))

	status, body, err := r.get(ctx, u.String())
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusNotFound:
		return "", ErrNoFlowConfigured
	case status != http.StatusOK:
		return "", &FlowResolutionError{Status: status, Body: body}
	}

	var res models.ResolveResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return res.FlowID, nil
}

// OnboardingURL builds the content URL for a resolved flow. The literal
// segment "1" is the fixed entry screen of every flow.
func OnboardingURL(backendDomain, flowID, deviceID string) string {
	return fmt.Sprintf("%s/onboarding/%s/1?deviceId=%s",
		strings.TrimRight(backendDomain, "/"),
		url.PathEscape(flowID),
		url.QueryEscape(deviceID))
}

// get issues one GET and returns the status and body. Transport failures
// map to ErrInvalidResponse.
func (r *Resolver) get(ctx context.Context, rawURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.StatusCode, string(body), nil
}
