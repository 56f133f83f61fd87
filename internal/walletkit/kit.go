package walletkit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

var (
	ErrKitNotStarted  = errors.New("wallet kit not started")
	ErrPairingExpired = errors.New("pairing uri expired")
)

// Transport carries the kit's relay traffic. *relay.Core implements it.
type Transport interface {
	Start(ctx context.Context) error
	Subscribe(ctx context.Context, topic string) (string, error)
	Close() error
}

// Pairing is a pairing topic the kit subscribed to.
type Pairing struct {
	Topic          string
	SubscriptionID string
	RelayProtocol  string
	Expiry         time.Time
	PairedAt       time.Time
}

// Kit is an initialized wallet kit client.
type Kit struct {
	cfg       Config
	transport Transport
	started   atomic.Bool
	now       func() time.Time

	// subscribing coalesces concurrent pairings of one topic.
	subscribing singleflight.Group

	mu       sync.Mutex
	pairings map[string]*Pairing
	order    []string
}

// New binds cfg to transport. The configuration is copied.
func New(cfg Config, transport Transport) (*Kit, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("wallet kit project id is required")
	}
	if transport == nil {
		return nil, errors.New("wallet kit transport is required")
	}
	return &Kit{
		cfg:       cfg.clone(),
		transport: transport,
		now:       time.Now,
		pairings:  make(map[string]*Pairing),
	}, nil
}

// Config returns a copy of the kit configuration.
func (k *Kit) Config() Config {
	return k.cfg.clone()
}

func (k *Kit) Initialized() bool {
	return k.started.Load()
}

// Initialize starts the transport. It is a no-op once it succeeded.
func (k *Kit) Initialize(ctx context.Context) error {
	if k.started.Load() {
		return nil
	}
	if err := k.transport.Start(ctx); err != nil {
		return errors.Wrapf(err, "initialize wallet kit %q", k.cfg.Metadata.Name)
	}
	k.started.Store(true)
	log.Infof("wallet kit %v initialized for chains %v", k.cfg.Metadata.Name, k.cfg.Namespaces())
	return nil
}

// Pair subscribes the topic of a pairing uri. Pairing a known topic again
// returns the recorded pairing.
func (k *Kit) Pair(ctx context.Context, uri string) (*Pairing, error) {
	if !k.started.Load() {
		return nil, ErrKitNotStarted
	}
	parsed, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if parsed.Expired(k.now()) {
		return nil, errors.Wrapf(ErrPairingExpired, "topic %v expired at %v", parsed.Topic, parsed.Expiry)
	}
	if p, ok := k.pairing(parsed.Topic); ok {
		return p, nil
	}
	v, err, _ := k.subscribing.Do(parsed.Topic, func() (interface{}, error) {
		if p, ok := k.pairing(parsed.Topic); ok {
			return p, nil
		}
		return k.subscribe(ctx, parsed)
	})
	if err != nil {
		return nil, err
	}
	return copyPairing(v.(*Pairing)), nil
}

func (k *Kit) subscribe(ctx context.Context, parsed *URI) (*Pairing, error) {
	id, err := k.transport.Subscribe(ctx, parsed.Topic)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe pairing topic %v", parsed.Topic)
	}
	p := &Pairing{
		Topic:          parsed.Topic,
		SubscriptionID: id,
		RelayProtocol:  parsed.RelayProtocol,
		Expiry:         parsed.Expiry,
		PairedAt:       k.now(),
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pairings[p.Topic] = p
	k.order = append(k.order, p.Topic)
	log.Infof("wallet kit %v paired topic %v", k.cfg.Metadata.Name, p.Topic)
	return copyPairing(p), nil
}

func (k *Kit) pairing(topic string) (*Pairing, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.pairings[topic]
	if !ok {
		return nil, false
	}
	return copyPairing(p), true
}

// Pairings lists pairings in the order they were made.
func (k *Kit) Pairings() []Pairing {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Pairing, 0, len(k.order))
	for _, topic := range k.order {
		out = append(out, *k.pairings[topic])
	}
	return out
}

// Close releases the transport.
func (k *Kit) Close() error {
	k.started.Store(false)
	return k.transport.Close()
}

func copyPairing(p *Pairing) *Pairing {
	cp := *p
	return &cp
}
