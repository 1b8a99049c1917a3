// Package onboard implements the onboarding SDK: device identity, the
// two-step flow resolution handshake, the web-bridge protocol handler, the
// permission broker, and the presentation controller tying them together.
package onboard

import (
	"errors"
	"fmt"
)

// Resolution errors. Every one of them is caught at the controller boundary
// and turned into the fallback screen; none reaches the host application.
var (
	// ErrInvalidURL indicates an endpoint URL could not be constructed.
	ErrInvalidURL = errors.New("invalid endpoint url")
	// ErrInvalidResponse indicates the transport returned something that is
	// not a well-formed response for the endpoint.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrEmptyBackendDomain indicates the config endpoint answered 200 with
	// an empty domain.
	ErrEmptyBackendDomain = errors.New("empty backend domain")
	// ErrNoFlowConfigured is the distinguished 404 outcome of flow
	// resolution: the project exists but has no active flow.
	ErrNoFlowConfigured = errors.New("no flow configured")
)

// ConfigFetchError reports a non-200 answer from the global config endpoint.
type ConfigFetchError struct {
	Status int
	Body   string
}

func (e *ConfigFetchError) Error() string {
	return fmt.Sprintf("config fetch failed: status %d: %s", e.Status, e.Body)
}

// FlowResolutionError reports a non-200, non-404 answer from the flow
// resolution endpoint.
type FlowResolutionError struct {
	Status int
	Body   string
}

func (e *FlowResolutionError) Error() string {
	return fmt.Sprintf("flow resolution failed: status %d: %s", e.Status, e.Body)
}
