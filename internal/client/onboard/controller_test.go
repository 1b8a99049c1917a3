package onboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/onboardkit/onboardkit/internal/client/kvstore"
	"github.com/onboardkit/onboardkit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePresenter records presentation calls and exposes them through
// channels so tests can synchronize with the controller's goroutine.
type fakePresenter struct {
	mu            sync.Mutex
	loadingCount  int
	contentURL    string
	handler       *BridgeHandler
	contentErr    error
	fallbackCount int
	onContinue    func()

	contentCh  chan struct{}
	fallbackCh chan struct{}
	dismissed  chan struct{}
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{
		contentCh:  make(chan struct{}, 1),
		fallbackCh: make(chan struct{}, 1),
		dismissed:  make(chan struct{}),
	}
}

func (p *fakePresenter) ShowLoading(a Appearance) {
	p.mu.Lock()
	p.loadingCount++
	p.mu.Unlock()
}

func (p *fakePresenter) ShowContent(url string, h *BridgeHandler) error {
	p.mu.Lock()
	p.contentURL = url
	p.handler = h
	err := p.contentErr
	p.mu.Unlock()
	if err == nil {
		p.contentCh <- struct{}{}
	}
	return err
}

func (p *fakePresenter) ContentReady() {}

func (p *fakePresenter) ShowFallback(a Appearance, onContinue func()) {
	p.mu.Lock()
	p.fallbackCount++
	p.onContinue = onContinue
	p.mu.Unlock()
	p.fallbackCh <- struct{}{}
}

func (p *fakePresenter) Dismissed() <-chan struct{} { return p.dismissed }

func (p *fakePresenter) loadings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadingCount
}

// newFakeBackend serves both resolution endpoints from one server, with the
// backend domain pointing back at itself.
func newFakeBackend(t *testing.T, configHits *int) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/config":
			if configHits != nil {
				*configHits++
			}
			w.Write([]byte(`{"backendDomain":"` + srv.URL + `"}`))
		case "/api/onboarding/resolve":
			w.Write([]byte(`{"flowId":"f1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestController(store kvstore.Store, presenter Presenter, backendURL string) *Controller {
	resolver := NewResolver(zap.NewNop())
	resolver.ConfigURL = backendURL + "/v1/config"
	return NewController(ControllerOptions{
		Store:      store,
		Presenter:  presenter,
		Resolver:   resolver,
		AppName:    "Demo",
		Background: "#112233",
	})
}

func TestShowOnboarding_SkipsWhenCompleted(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Set(kvstore.KeyCompleted, "true"))
	presenter := newFakePresenter()

	completions := 0
	c := newTestController(store, presenter, "http://unused.invalid")
	c.ShowOnboarding(context.Background(), Config{
		ProjectID:  "p1",
		SecretKey:  "k1",
		OnComplete: func(*models.Result) { completions++ },
	})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, presenter.loadings(), "no presentation when already completed")
	assert.Equal(t, 0, completions, "no callback when already completed")
}

func TestShowOnboarding_TestingModeBypassesCompletion(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Set(kvstore.KeyCompleted, "true"))
	backend := newFakeBackend(t, nil)
	presenter := newFakePresenter()

	c := newTestController(store, presenter, backend.URL)
	c.ShowOnboarding(context.Background(), Config{
		ProjectID:      "p1",
		SecretKey:      "k1",
		TestingEnabled: true,
	})

	select {
	case <-presenter.contentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("content never presented in testing mode")
	}
	assert.Contains(t, presenter.contentURL, "/onboarding/f1/1?deviceId=")
}

func TestShowOnboarding_SecondCallIsNoOp(t *testing.T) {
	store := newFakeStore()
	configHits := 0
	backend := newFakeBackend(t, &configHits)
	presenter := newFakePresenter()

	c := newTestController(store, presenter, backend.URL)
	c.ShowOnboarding(context.Background(), Config{ProjectID: "p1", SecretKey: "k1", TestingEnabled: true})

	select {
	case <-presenter.contentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("content never presented")
	}

	// Session still active: this call must not present or hit the network.
	c.ShowOnboarding(context.Background(), Config{ProjectID: "p1", SecretKey: "k1", TestingEnabled: true})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, presenter.loadings())
	assert.Equal(t, 1, configHits)
}

func TestShowOnboarding_LockReleasedOnDismissal(t *testing.T) {
	store := newFakeStore()
	backend := newFakeBackend(t, nil)
	presenter := newFakePresenter()

	c := newTestController(store, presenter, backend.URL)
	c.ShowOnboarding(context.Background(), Config{ProjectID: "p1", SecretKey: "k1", TestingEnabled: true})

	select {
	case <-presenter.contentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("content never presented")
	}

	// Completion alone must not release the session lock.
	presenter.handler.HandleMessage("close_pressed")
	time.Sleep(50 * time.Millisecond)
	c.ShowOnboarding(context.Background(), Config{ProjectID: "p1", SecretKey: "k1", TestingEnabled: true})
	assert.Equal(t, 1, presenter.loadings(), "lock held until dismissal")

	close(presenter.dismissed)
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return !c.active
	}, 2*time.Second, 10*time.Millisecond, "lock never released after dismissal")
}

func TestShowOnboarding_ResolveErrorRoutesToFallback(t *testing.T) {
	store := newFakeStore()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	presenter := newFakePresenter()

	var (
		completions int
		gotResult   *models.Result = &models.Result{} // sentinel, replaced below
	)
	c := newTestController(store, presenter, srv.URL)
	c.ShowOnboarding(context.Background(), Config{
		ProjectID: "p1",
		SecretKey: "k1",
		OnComplete: func(r *models.Result) {
			completions++
			gotResult = r
		},
	})

	select {
	case <-presenter.fallbackCh:
	case <-time.After(2 * time.Second):
		t.Fatal("fallback never presented")
	}
	assert.Empty(t, presenter.contentURL, "bridge must not be attempted after a resolution error")

	// Continue on the fallback screen completes with an absent result.
	presenter.onContinue()
	assert.Equal(t, 1, completions)
	assert.Nil(t, gotResult)

	v, ok := store.Get(kvstore.KeyCompleted)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	// A second tap must not complete again.
	presenter.onContinue()
	assert.Equal(t, 1, completions)
}

func TestShowOnboarding_CompletionPersistsAndFiresOnce(t *testing.T) {
	store := newFakeStore()
	backend := newFakeBackend(t, nil)
	presenter := newFakePresenter()

	var (
		completions int
		gotResult   *models.Result
	)
	c := newTestController(store, presenter, backend.URL)
	c.ShowOnboarding(context.Background(), Config{
		ProjectID: "p1",
		SecretKey: "k1",
		OnComplete: func(r *models.Result) {
			completions++
			gotResult = r
		},
	})

	select {
	case <-presenter.contentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("content never presented")
	}

	h := presenter.handler
	h.HandleMessage("initial_load_complete")
	h.HandleMessage(`form_responses:{"flowId":"f1","responses":[{"questionText":"Name?","questionType":"text","answer":"Alice"}]}`)
	h.HandleMessage("close_pressed")
	h.HandleMessage("close_pressed")

	require.Equal(t, 1, completions)
	require.NotNil(t, gotResult)
	assert.Equal(t, "f1", gotResult.FlowID)
	require.Len(t, gotResult.Responses, 1)
	assert.Equal(t, "Alice", gotResult.Responses[0].Answer.AsString())

	v, _ := store.Get(kvstore.KeyCompleted)
	assert.Equal(t, "true", v)
}

func TestShowOnboarding_TestingModeDoesNotPersistCompletion(t *testing.T) {
	store := newFakeStore()
	backend := newFakeBackend(t, nil)
	presenter := newFakePresenter()

	c := newTestController(store, presenter, backend.URL)
	c.ShowOnboarding(context.Background(), Config{ProjectID: "p1", SecretKey: "k1", TestingEnabled: true})

	select {
	case <-presenter.contentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("content never presented")
	}
	presenter.handler.HandleMessage("close_pressed")

	_, ok := store.Get(kvstore.KeyCompleted)
	assert.False(t, ok, "testing mode must not persist the completion flag")
}

func TestShowOnboarding_MissingConfigIsNoOp(t *testing.T) {
	presenter := newFakePresenter()
	c := newTestController(newFakeStore(), presenter, "http://unused.invalid")

	c.ShowOnboarding(context.Background(), Config{ProjectID: "", SecretKey: ""})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, presenter.loadings())
}
