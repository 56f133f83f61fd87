package walletkit

import (
	"context"

	"go.uber.org/atomic"
	"moff.io/walletkit/internal/config"
	"moff.io/walletkit/pkg/log"
)

// Process-wide accessors. They start out bound to the public relay; UseRelay
// points them at the configured one.
var (
	SessionKit = NewAccessor("session", SessionBuilder(RelayTransport("")))
	PairingKit = NewAccessor("pairing", PairingBuilder(RelayTransport("")))
)

// UseRelay rebinds SessionKit and PairingKit to the relay urls of conf.
func UseRelay(conf *config.Configuration) {
	SessionKit.SetBuilder(SessionBuilder(RelayTransport(conf.WalletKit.RelayURL)))
	PairingKit.SetBuilder(PairingBuilder(RelayTransport(conf.Pairing.RelayURL)))
}

// Initialize initializes SessionKit with projectID.
func Initialize(ctx context.Context, projectID string) error {
	return SessionKit.Initialize(ctx, projectID)
}

// Get returns the kit held by SessionKit.
func Get() (*Kit, error) {
	return SessionKit.Get()
}

// Component runs an accessor's Initialize as part of starter.Start and closes
// its kit on starter.Stop.
type Component struct {
	accessor  *Accessor
	projectID func(*config.Configuration) string
	token     string
	started   atomic.Bool
	done      chan struct{}
}

func NewComponent(accessor *Accessor, projectID func(*config.Configuration) string) *Component {
	return &Component{accessor: accessor, projectID: projectID, done: make(chan struct{})}
}

func (c *Component) Apply(conf *config.Configuration) {
	if conf != nil && c.projectID != nil {
		c.token = c.projectID(conf)
	}
}

// Start initializes in the background. The outcome is visible through the
// accessor; Done is closed once the attempt finished. Only the first call
// starts an attempt.
func (c *Component) Start(ctx context.Context) {
	if !c.started.CAS(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		_ = c.accessor.Initialize(ctx, c.token)
	}()
}

func (c *Component) Done() <-chan struct{} {
	return c.done
}

// Stop waits for a running Start and closes the kit if one was built.
func (c *Component) Stop() {
	if c.started.Load() {
		<-c.done
	}
	kit, err := c.accessor.Get()
	if err != nil {
		return
	}
	if err := kit.Close(); err != nil {
		log.Warnf("close %v wallet kit:%v", c.accessor.Name(), err)
	}
}
