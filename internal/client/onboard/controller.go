package onboard

import (
	"context"
	"sync"

	"github.com/onboardkit/onboardkit/internal/client/kvstore"
	"github.com/onboardkit/onboardkit/internal/colorutil"
	"github.com/onboardkit/onboardkit/internal/models"
	"go.uber.org/zap"
)

// Config is the caller's per-invocation configuration for ShowOnboarding.
// The SDK only reads it.
type Config struct {
	// ProjectID identifies the project; required.
	ProjectID string
	// SecretKey authenticates the config fetch; required, never logged.
	SecretKey string
	// TestingEnabled bypasses the completion-skip check and suppresses
	// persistence of the completion flag.
	TestingEnabled bool
	// OnComplete receives the session outcome: a populated result, or nil
	// for the fallback path or a flow with no answered questions. Invoked
	// at most once per ShowOnboarding invocation.
	OnComplete func(result *models.Result)
}

// Appearance carries what the loading and fallback screens need to render.
type Appearance struct {
	// AppName is shown on the static screens.
	AppName string
	// Background is the hex background color.
	Background string
	// DarkBackground selects light text when true.
	DarkBackground bool
}

// Presenter is the platform UI boundary. Implementations present views
// modally, keep the loading screen up until ContentReady, and close the
// Dismissed channel once the presentation is fully gone (which is when, and
// only when, the session lock is released).
type Presenter interface {
	// ShowLoading presents the loading screen.
	ShowLoading(a Appearance)
	// ShowContent starts navigating the embedded web view to url, feeding
	// bridge channel messages and navigation failures into handler. The
	// loading screen stays visible until ContentReady.
	ShowContent(url string, handler *BridgeHandler) error
	// ContentReady reveals the content; called when the bridge reports
	// initial_load_complete.
	ContentReady()
	// ShowFallback presents the static fallback screen; onContinue is
	// invoked when the user taps its continue action.
	ShowFallback(a Appearance, onContinue func())
	// Dismissed is closed once the presentation is fully dismissed.
	Dismissed() <-chan struct{}
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// Store persists the device id and completion flag; required.
	Store kvstore.Store
	// Presenter is the platform UI boundary; required.
	Presenter Presenter
	// Resolver performs flow resolution; defaults to NewResolver.
	Resolver *Resolver
	// Permissions handles request_permission messages; optional.
	Permissions PermissionRequester
	// Rating handles request_rating messages; optional.
	Rating RatingPrompter
	// StatusBar handles themeStyle messages; optional.
	StatusBar StatusBarStyler
	// AppName and Background feed the static screens.
	AppName    string
	Background string
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Controller orchestrates one onboarding session at a time: it enforces the
// single-active-session and completion-skip rules, runs the resolve
// pipeline, and routes every resolution failure to the fallback screen. No
// error ever propagates to the host.
type Controller struct {
	store       kvstore.Store
	presenter   Presenter
	resolver    *Resolver
	permissions PermissionRequester
	rating      RatingPrompter
	statusBar   StatusBarStyler
	appearance  Appearance
	logger      *zap.Logger

	mu     sync.Mutex
	active bool
}

// NewController constructs a Controller from opts, applying defaults for
// the optional fields.
func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewResolver(logger)
	}
	return &Controller{
		store:       opts.Store,
		presenter:   opts.Presenter,
		resolver:    resolver,
		permissions: opts.Permissions,
		rating:      opts.Rating,
		statusBar:   opts.StatusBar,
		appearance: Appearance{
			AppName:        opts.AppName,
			Background:     opts.Background,
			DarkBackground: colorutil.IsDark(opts.Background),
		},
		logger: logger,
	}
}

// ShowOnboarding starts an onboarding session. It is fire-and-forget: the
// pipeline runs on its own goroutine and all outcomes surface through
// cfg.OnComplete. The call is a dropped no-op if a session is already
// active, or if onboarding already completed and testing mode is off.
func (c *Controller) ShowOnboarding(ctx context.Context, cfg Config) {
	if cfg.ProjectID == "" || cfg.SecretKey == "" {
		c.logger.Error("ShowOnboarding requires a project id and secret key")
		return
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		c.logger.Debug("onboarding session already active, ignoring call")
		return
	}
	if !cfg.TestingEnabled && c.completed() {
		c.mu.Unlock()
		c.logger.Debug("onboarding already completed, skipping")
		return
	}
	c.active = true
	c.mu.Unlock()

	go c.run(ctx, cfg)
}

// completed reads the persisted completion flag; callers hold the mutex.
func (c *Controller) completed() bool {
	v, ok := c.store.Get(kvstore.KeyCompleted)
	return ok && v == "true"
}

// run drives one session: resolve, present, and hold the session lock until
// full dismissal. Dismissal is independent of completion; the lock is never
// released just because the completion callback fired.
func (c *Controller) run(ctx context.Context, cfg Config) {
	// One completion per session, shared by the bridge's close_pressed and
	// the fallback screen's continue action.
	var once sync.Once
	finish := func(result *models.Result) {
		once.Do(func() {
			if !cfg.TestingEnabled {
				if err := c.store.Set(kvstore.KeyCompleted, "true"); err != nil {
					c.logger.Warn("completion flag not persisted", zap.Error(err))
				}
			}
			if cfg.OnComplete != nil {
				cfg.OnComplete(result)
			}
		})
	}
	fallback := func() {
		c.presenter.ShowFallback(c.appearance, func() { finish(nil) })
	}

	c.presenter.ShowLoading(c.appearance)

	deviceID := DeviceID(c.store, c.logger)

	domain, err := c.resolver.FetchBackendDomain(ctx, cfg.ProjectID, cfg.SecretKey)
	if err != nil {
		c.logger.Warn("backend domain fetch failed", zap.Error(err))
		fallback()
		c.awaitDismissal(ctx)
		return
	}

	flowID, err := c.resolver.ResolveFlowID(ctx, domain, cfg.ProjectID, deviceID)
	if err != nil {
		c.logger.Warn("flow resolution failed", zap.Error(err))
		fallback()
		c.awaitDismissal(ctx)
		return
	}

	handler := NewBridgeHandler(flowID, c.permissions, c.rating, c.statusBar, c.logger, BridgeCallbacks{
		OnActive:   c.presenter.ContentReady,
		OnComplete: finish,
		OnFallback: fallback,
	})

	contentURL := OnboardingURL(domain, flowID, deviceID)
	c.logger.Info("presenting onboarding flow", zap.String("flowId", flowID))

	if err := c.presenter.ShowContent(contentURL, handler); err != nil {
		c.logger.Warn("content presentation failed", zap.Error(err))
		fallback()
	}

	c.awaitDismissal(ctx)
}

// awaitDismissal blocks until the presentation is fully dismissed, then
// releases the session lock. Context cancellation counts as teardown and
// releases too.
func (c *Controller) awaitDismissal(ctx context.Context) {
	select {
	case <-c.presenter.Dismissed():
	case <-ctx.Done():
	}
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}
