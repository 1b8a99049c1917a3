package onboard

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PermissionKind names an OS permission the content may request.
type PermissionKind string

const (
	PermissionCamera       PermissionKind = "camera"
	PermissionPhotos       PermissionKind = "photos"
	PermissionLocation     PermissionKind = "location"
	PermissionContacts     PermissionKind = "contacts"
	PermissionNotification PermissionKind = "notification"
)

// AuthStatus is the current authorization state reported by the OS layer.
type AuthStatus int

const (
	// AuthUndetermined means the user has not been asked yet.
	AuthUndetermined AuthStatus = iota
	// AuthGranted means access is allowed.
	AuthGranted
	// AuthDenied means access is not allowed and prompting again is futile.
	AuthDenied
	// AuthLimited means partial access was granted (e.g. a photo subset);
	// the broker treats it as granted.
	AuthLimited
)

// Authorizer is the OS boundary for one permission kind.
type Authorizer interface {
	// Status returns the current authorization state without prompting.
	Status() AuthStatus
	// Prompt shows the single OS dialog and reports the user's choice.
	Prompt(ctx context.Context) (bool, error)
}

// Broker maps permission kinds to their authorizers and normalizes results
// to a boolean. A kind whose status is already determined resolves without
// prompting; an undetermined kind gets exactly one prompt, shared by any
// concurrent requests for that kind.
type Broker struct {
	authorizers map[PermissionKind]Authorizer
	logger      *zap.Logger

	mu       sync.Mutex
	inflight map[PermissionKind][]chan bool
}

// NewBroker creates a Broker over the given authorizers. Kinds without an
// authorizer resolve to false.
func NewBroker(authorizers map[PermissionKind]Authorizer, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		authorizers: authorizers,
		logger:      logger,
		inflight:    make(map[PermissionKind][]chan bool),
	}
}

// Request resolves the permission kind to granted (true) or denied (false).
// It blocks until the status check or prompt finishes, or ctx is done (in
// which case it reports false).
func (b *Broker) Request(ctx context.Context, kind PermissionKind) bool {
	a, ok := b.authorizers[kind]
	if !ok {
		b.logger.Warn("permission request for unknown kind", zap.String("kind", string(kind)))
		return false
	}

	switch a.Status() {
	case AuthGranted, AuthLimited:
		return true
	case AuthDenied:
		return false
	}

	// Undetermined: join an in-flight prompt for this kind, or own a new one.
	b.mu.Lock()
	if waiters, pending := b.inflight[kind]; pending {
		ch := make(chan bool, 1)
		b.inflight[kind] = append(waiters, ch)
		b.mu.Unlock()
		select {
		case granted := <-ch:
			return granted
		case <-ctx.Done():
			return false
		}
	}
	b.inflight[kind] = nil
	b.mu.Unlock()

	granted, err := a.Prompt(ctx)
	if err != nil {
		b.logger.Warn("permission prompt failed",
			zap.String("kind", string(kind)), zap.Error(err))
		granted = false
	}

	b.mu.Lock()
	waiters := b.inflight[kind]
	delete(b.inflight, kind)
	b.mu.Unlock()

	for _, ch := range waiters {
		ch <- granted
	}
	return granted
}
