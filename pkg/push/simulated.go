package push

import (
	"context"
	"fmt"
	"sync/atomic"
)

// SimulatedGateway implements Gateway without a provider, for tests and local
// development. Failures are deterministic: every FailEvery-th send returns an
// error (0 means never fail), so test expectations never depend on chance.
type SimulatedGateway struct {
	FailEvery int

	sends atomic.Int64
}

// Send implements Gateway.
func (g *SimulatedGateway) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}

	n := g.sends.Add(1)
	if g.FailEvery > 0 && n%int64(g.FailEvery) == 0 {
		return "", fmt.Errorf("%w: simulated failure on send %d", ErrSendFailed, n)
	}
	return fmt.Sprintf("sim-%d", n), nil
}

// Healthy implements Gateway.
func (g *SimulatedGateway) Healthy(ctx context.Context) bool {
	return true
}

// Sends returns how many sends were attempted.
func (g *SimulatedGateway) Sends() int64 {
	return g.sends.Load()
}
