package starter

import (
	"context"

	"moff.io/walletkit/internal/config"
)

type Startable interface {
	Start(ctx context.Context)
}

type Configurable interface {
	Apply(*config.Configuration)
}

// Start applies conf to every Configurable element, then starts the elements
// in order.
func Start(ctx context.Context, conf *config.Configuration, elems ...Startable) {
	for _, ele := range elems {
		if configurable, ok := ele.(Configurable); ok {
			configurable.Apply(conf)
		}
		ele.Start(ctx)
	}
}

type Stopable interface {
	Stop()
}

// Stop stops every element implementing Stopable, last started first.
func Stop(elems ...Startable) {
	for i := len(elems) - 1; i >= 0; i-- {
		if s, ok := elems[i].(Stopable); ok {
			s.Stop()
		}
	}
}
