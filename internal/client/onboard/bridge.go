package onboard

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/onboardkit/onboardkit/internal/models"
	"go.uber.org/zap"
)

// ChannelName is the single message channel the embedded content posts to.
// The host's web-view glue registers this name and feeds every received
// string into BridgeHandler.HandleMessage.
const ChannelName = "onboardkit"

// State is a bridge session state.
type State string

const (
	// StateLoading runs from the start of navigation until the content
	// reports it has rendered. The loading screen stays up for all of it,
	// even after the transport-level page-load event.
	StateLoading State = "loading"
	// StateActive means the content is rendered and interactive.
	StateActive State = "active"
	// StateCompleted is terminal; entered at most once per session.
	StateCompleted State = "completed"
	// StateFallbackShown is terminal; entered on navigation failure.
	StateFallbackShown State = "fallback_shown"
)

// Bridge message shapes. The protocol is closed: anything else is logged
// and dropped, and must never abort the session.
const (
	msgInitialLoadComplete  = "initial_load_complete"
	msgClosePressed         = "close_pressed"
	msgRequestRating        = "request_rating"
	prefixThemeStyle        = "themeStyle:"
	prefixRequestPermission = "request_permission:"
	prefixFormResponses     = "form_responses:"
)

// StatusBarStyle is the status-bar treatment requested by the content.
type StatusBarStyle string

// StatusBarLightContent is the only treatment the protocol currently
// produces; both themeStyle values map to it.
const StatusBarLightContent StatusBarStyle = "light_content"

// RatingPrompter triggers the platform's native review prompt.
// Fire-and-forget; the protocol has no response message for it.
type RatingPrompter interface {
	RequestRating()
}

// StatusBarStyler applies a status-bar treatment on the platform side.
type StatusBarStyler interface {
	SetStatusBarStyle(style StatusBarStyle)
}

// PermissionRequester resolves a permission request to granted or denied.
// The bridge fires these and logs the outcome; nothing goes back over the
// bridge.
type PermissionRequester interface {
	Request(ctx context.Context, kind PermissionKind) bool
}

// BridgeCallbacks are the handler's notifications to its owner. OnComplete
// fires at most once per session, with the accumulated result or nil if the
// content never reported responses.
type BridgeCallbacks struct {
	OnActive   func()
	OnComplete func(result *models.Result)
	OnFallback func()
}

// BridgeHandler owns one session of the content-to-host message protocol.
// It is safe for concurrent use: web-view callbacks and navigation events
// may arrive on different goroutines.
type BridgeHandler struct {
	flowID      string
	permissions PermissionRequester
	rating      RatingPrompter
	statusBar   StatusBarStyler
	logger      *zap.Logger
	callbacks   BridgeCallbacks

	mu     sync.Mutex
	state  State
	result *models.Result
}

// NewBridgeHandler creates a handler in StateLoading for one session of the
// given flow.
func NewBridgeHandler(
	flowID string,
	permissions PermissionRequester,
	rating RatingPrompter,
	statusBar StatusBarStyler,
	logger *zap.Logger,
	callbacks BridgeCallbacks,
) *BridgeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeHandler{
		flowID:      flowID,
		permissions: permissions,
		rating:      rating,
		statusBar:   statusBar,
		logger:      logger,
		callbacks:   callbacks,
		state:       StateLoading,
	}
}

// State returns the current session state.
func (h *BridgeHandler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Result returns the currently accumulated result, or nil if the content
// has not reported responses.
func (h *BridgeHandler) Result() *models.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// HandleMessage processes one raw string received on the bridge channel.
func (h *BridgeHandler) HandleMessage(message string) {
	switch {
	case message == msgInitialLoadComplete:
		h.mu.Lock()
		ready := h.state == StateLoading
		if ready {
			h.state = StateActive
		}
		h.mu.Unlock()
		if ready {
			if h.callbacks.OnActive != nil {
				h.callbacks.OnActive()
			}
		} else {
			h.logger.Debug("ignoring initial_load_complete outside loading state")
		}

	case message == msgClosePressed:
		h.complete()

	case message == msgRequestRating:
		if h.rating != nil {
			h.rating.RequestRating()
		}

	case strings.HasPrefix(message, prefixThemeStyle):
		h.handleThemeStyle(strings.TrimPrefix(message, prefixThemeStyle))

	case strings.HasPrefix(message, prefixRequestPermission):
		h.handlePermission(PermissionKind(strings.TrimPrefix(message, prefixRequestPermission)))

	case strings.HasPrefix(message, prefixFormResponses):
		h.handleFormResponses(strings.TrimPrefix(message, prefixFormResponses))

	default:
		h.logger.Debug("ignoring unrecognized bridge message", zap.String("message", message))
	}
}

// HandleNavigationFailure moves the session to the fallback state. It is
// called for failures of both provisional and committed navigation, in any
// state; once the session is completed or already in fallback it is a
// no-op.
func (h *BridgeHandler) HandleNavigationFailure(err error) {
	h.mu.Lock()
	if h.state == StateCompleted || h.state == StateFallbackShown {
		h.mu.Unlock()
		return
	}
	h.state = StateFallbackShown
	h.mu.Unlock()

	h.logger.Warn("navigation failed, switching to fallback", zap.Error(err))
	if h.callbacks.OnFallback != nil {
		h.callbacks.OnFallback()
	}
}

// complete runs the one-shot completion transition. Duplicate completion
// triggers are dropped, so OnComplete fires at most once.
func (h *BridgeHandler) complete() {
	h.mu.Lock()
	if h.state == StateCompleted || h.state == StateFallbackShown {
		h.mu.Unlock()
		h.logger.Debug("ignoring duplicate completion trigger")
		return
	}
	h.state = StateCompleted
	result := h.result
	h.mu.Unlock()

	if h.callbacks.OnComplete != nil {
		h.callbacks.OnComplete(result)
	}
}

func (h *BridgeHandler) handleThemeStyle(value string) {
	switch value {
	// Both recognized values map to the light-content treatment. That is
	// the protocol's documented behavior, not an oversight to fix here.
	case "light", "dark":
		if h.statusBar != nil {
			h.statusBar.SetStatusBarStyle(StatusBarLightContent)
		}
	default:
		h.logger.Debug("ignoring unknown themeStyle value", zap.String("value", value))
	}
}

func (h *BridgeHandler) handlePermission(kind PermissionKind) {
	if h.permissions == nil {
		return
	}
	// Fire and forget off the message-handling path; permission prompts
	// must not block bridge processing.
	go func() {
		granted := h.permissions.Request(context.Background(), kind)
		h.logger.Debug("permission request finished",
			zap.String("kind", string(kind)),
			zap.Bool("granted", granted))
	}()
}

func (h *BridgeHandler) handleFormResponses(payload string) {
	var result models.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		h.logger.Warn("dropping malformed form_responses payload", zap.Error(err))
		return
	}
	if result.FlowID == "" {
		result.FlowID = h.flowID
	}

	// Last write wins: a new payload replaces the held result wholesale.
	h.mu.Lock()
	h.result = &result
	h.mu.Unlock()
}
