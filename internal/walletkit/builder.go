package walletkit

import (
	"context"

	"moff.io/walletkit/internal/relay"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

// TransportFactory creates the transport a kit authenticates with projectID.
type TransportFactory func(projectID string) (Transport, error)

// RelayTransport returns a factory of relay cores for relayURL. An empty URL
// selects the public WalletConnect relay.
func RelayTransport(relayURL string) TransportFactory {
	return func(projectID string) (Transport, error) {
		core, err := relay.NewCore(relay.Options{ProjectID: projectID, RelayURL: relayURL})
		if err != nil {
			return nil, err
		}
		return core, nil
	}
}

// SessionBuilder builds the wallet-session kit configured by SessionConfig.
func SessionBuilder(newTransport TransportFactory) Builder {
	return func(ctx context.Context, token string) (*Kit, error) {
		return buildKit(ctx, SessionConfig(token), newTransport)
	}
}

// PairingBuilder builds the pairing kit configured by PairingConfig.
func PairingBuilder(newTransport TransportFactory) Builder {
	return func(ctx context.Context, token string) (*Kit, error) {
		return buildKit(ctx, PairingConfig(token), newTransport)
	}
}

func buildKit(ctx context.Context, cfg Config, newTransport TransportFactory) (*Kit, error) {
	transport, err := newTransport(cfg.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "create wallet kit transport")
	}
	kit, err := New(cfg, transport)
	if err != nil {
		closeTransport(transport)
		return nil, err
	}
	if err := kit.Initialize(ctx); err != nil {
		closeTransport(transport)
		return nil, err
	}
	return kit, nil
}

func closeTransport(t Transport) {
	if err := t.Close(); err != nil {
		log.Warnf("close wallet kit transport:%v", err)
	}
}
