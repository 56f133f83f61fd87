package walletkit

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

// ErrNotInitialized is returned by Accessor.Get until an Initialize succeeded.
var ErrNotInitialized = errors.New("wallet kit is not initialized")

// Builder creates and sets up a kit for token.
type Builder func(ctx context.Context, token string) (*Kit, error)

// Accessor holds at most one kit for its whole lifetime. It moves from
// uninitialized to ready exactly once and never back.
type Accessor struct {
	name string

	mu    sync.Mutex
	build Builder

	handle  atomic.Value
	lastErr atomic.Error
	group   singleflight.Group
}

// NewAccessor returns an uninitialized accessor that builds with build.
func NewAccessor(name string, build Builder) *Accessor {
	return &Accessor{name: name, build: build}
}

// SetBuilder replaces the builder used by later Initialize calls. A ready
// accessor keeps its kit.
func (a *Accessor) SetBuilder(build Builder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.build = build
}

func (a *Accessor) builder() Builder {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.build
}

// Name labels the accessor in logs and errors.
func (a *Accessor) Name() string {
	return a.name
}

// Initialize builds the kit unless the accessor is already ready. Concurrent
// calls share one build and its result, using the context of the call that
// started it. Failures are logged, reported and kept for LastError; the
// accessor stays uninitialized. Callers that do not care may drop the error.
func (a *Accessor) Initialize(ctx context.Context, token string) error {
	if a.Ready() {
		return nil
	}
	_, err, _ := a.group.Do(a.name, func() (interface{}, error) {
		if kit := a.load(); kit != nil {
			return kit, nil
		}
		kit, err := a.builder()(ctx, token)
		if err == nil && kit == nil {
			err = errors.New("builder returned no kit")
		}
		if err != nil {
			err = errors.WrapAndReport(err, "initialize "+a.name+" wallet kit")
			a.lastErr.Store(err)
			log.Errorf("Error initializing %v wallet kit:%v", a.name, err)
			return nil, err
		}
		a.handle.Store(kit)
		a.lastErr.Store(nil)
		log.Infof("%v wallet kit initialized", a.name)
		return kit, nil
	})
	return err
}

// Get returns the shared kit, or an error matching ErrNotInitialized.
func (a *Accessor) Get() (*Kit, error) {
	if kit := a.load(); kit != nil {
		return kit, nil
	}
	return nil, errors.WithMessage(ErrNotInitialized, a.name)
}

// Ready reports whether a kit is held.
func (a *Accessor) Ready() bool {
	return a.load() != nil
}

// LastError is the error of the latest failed Initialize, nil once ready.
func (a *Accessor) LastError() error {
	return a.lastErr.Load()
}

func (a *Accessor) load() *Kit {
	kit, _ := a.handle.Load().(*Kit)
	return kit
}
