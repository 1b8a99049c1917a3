package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/onboardkit/onboardkit/internal/client/kvstore"
	"github.com/onboardkit/onboardkit/internal/client/onboard"
	"github.com/onboardkit/onboardkit/internal/logger"
	"github.com/onboardkit/onboardkit/internal/models"
)

var (
	version   string
	buildDate string
)

// consolePresenter implements the SDK's presentation boundary on the
// terminal. The "screens" are printed lines; dismissal is the exit command.
type consolePresenter struct {
	mu         sync.Mutex
	handler    *onboard.BridgeHandler
	onContinue func()

	dismissOnce sync.Once
	dismissed   chan struct{}
}

func newConsolePresenter() *consolePresenter {
	return &consolePresenter{dismissed: make(chan struct{})}
}

func (p *consolePresenter) ShowLoading(a onboard.Appearance) {
	fmt.Printf("[loading] %s (dark background: %v)\n", a.AppName, a.DarkBackground)
}

func (p *consolePresenter) ShowContent(url string, h *onboard.BridgeHandler) error {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
	fmt.Printf("[webview] navigating to %s\n", url)
	fmt.Println("[webview] type bridge messages below (try: initial_load_complete)")
	return nil
}

func (p *consolePresenter) ContentReady() {
	fmt.Println("[webview] content ready, loading screen hidden")
}

func (p *consolePresenter) ShowFallback(a onboard.Appearance, onContinue func()) {
	p.mu.Lock()
	p.onContinue = onContinue
	p.mu.Unlock()
	fmt.Printf("[fallback] welcome to %s — type 'continue' to proceed\n", a.AppName)
}

func (p *consolePresenter) Dismissed() <-chan struct{} { return p.dismissed }

func (p *consolePresenter) dismiss() {
	p.dismissOnce.Do(func() { close(p.dismissed) })
}

// consoleAuthorizer grants every prompt, printing what a real OS layer
// would ask.
type consoleAuthorizer struct {
	kind onboard.PermissionKind
}

func (a *consoleAuthorizer) Status() onboard.AuthStatus { return onboard.AuthUndetermined }

func (a *consoleAuthorizer) Prompt(ctx context.Context) (bool, error) {
	fmt.Printf("[os] permission prompt for %s: granted\n", a.kind)
	return true, nil
}

type consoleRating struct{}

func (consoleRating) RequestRating() {
	fmt.Println("[os] native rating prompt shown")
}

type consoleStatusBar struct{}

func (consoleStatusBar) SetStatusBarStyle(style onboard.StatusBarStyle) {
	fmt.Printf("[os] status bar style -> %s\n", style)
}

// repl feeds each input line to the bridge handler as a raw message, with a
// few host-side commands on top.
func repl(presenter *consolePresenter) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("onboard> ")
		if !scanner.Scan() {
			presenter.dismiss()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "help":
			fmt.Println("Commands: help, fail, continue, exit — anything else is sent as a bridge message")
			fmt.Println("Protocol: initial_load_complete, close_pressed, request_rating,")
			fmt.Println("          themeStyle:<light|dark>, request_permission:<kind>, form_responses:<json>")
		case "fail":
			presenter.mu.Lock()
			h := presenter.handler
			presenter.mu.Unlock()
			if h == nil {
				fmt.Println("No active web view")
				continue
			}
			h.HandleNavigationFailure(fmt.Errorf("simulated navigation failure"))
		case "continue":
			presenter.mu.Lock()
			cont := presenter.onContinue
			presenter.mu.Unlock()
			if cont == nil {
				fmt.Println("Fallback screen is not showing")
				continue
			}
			cont()
		case "exit":
			fmt.Println("Bye")
			presenter.dismiss()
			return
		default:
			presenter.mu.Lock()
			h := presenter.handler
			presenter.mu.Unlock()
			if h == nil {
				fmt.Println("No active web view; wait for navigation or type 'help'")
				continue
			}
			h.HandleMessage(line)
		}
	}
}

// main parses flags and runs one onboarding session against a backend.
func main() {
	var (
		projectID string
		secretKey string
		configURL string
		statePath string
		appName   string
		bg        string
		testing   bool
		showVer   bool
	)

	flag.StringVar(&projectID, "project", "", "project id")
	flag.StringVar(&secretKey, "secret", "", "project secret key")
	flag.StringVar(&configURL, "config-url", "", "override the global config endpoint")
	flag.StringVar(&statePath, "state", "onboard_state.json", "path to local state file")
	flag.StringVar(&appName, "app", "Demo App", "application name for static screens")
	flag.StringVar(&bg, "bg", "#1a1a2e", "background color for static screens")
	flag.BoolVar(&testing, "testing", false, "bypass the completion-skip check")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("onboardkit demo client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}
	if projectID == "" || secretKey == "" {
		log.Fatal("please provide -project and -secret")
	}

	zl := logger.New()
	defer func() { _ = zl.Log.Sync() }()
	if err := zl.Init("Warn"); err != nil {
		log.Fatal(err)
	}

	store, err := kvstore.Open(statePath)
	if err != nil {
		log.Fatal(err)
	}

	resolver := onboard.NewResolver(zl.Log)
	if configURL != "" {
		resolver.ConfigURL = configURL
	}

	authorizers := make(map[onboard.PermissionKind]onboard.Authorizer)
	for _, kind := range []onboard.PermissionKind{
		onboard.PermissionCamera,
		onboard.PermissionPhotos,
		onboard.PermissionLocation,
		onboard.PermissionContacts,
		onboard.PermissionNotification,
	} {
		authorizers[kind] = &consoleAuthorizer{kind: kind}
	}

	presenter := newConsolePresenter()
	controller := onboard.NewController(onboard.ControllerOptions{
		Store:       store,
		Presenter:   presenter,
		Resolver:    resolver,
		Permissions: onboard.NewBroker(authorizers, zl.Log),
		Rating:      consoleRating{},
		StatusBar:   consoleStatusBar{},
		AppName:     appName,
		Background:  bg,
		Logger:      zl.Log,
	})

	controller.ShowOnboarding(context.Background(), onboard.Config{
		ProjectID:      projectID,
		SecretKey:      secretKey,
		TestingEnabled: testing,
		OnComplete: func(result *models.Result) {
			if result == nil {
				fmt.Println("[sdk] onboarding complete (no responses)")
				return
			}
			b, _ := json.MarshalIndent(result, "", "  ")
			fmt.Printf("[sdk] onboarding complete:\n%s\n", b)
		},
	})

	repl(presenter)
}
