package lifecycle

import (
	"context"
	"sync"
)

// NetworkMonitor tracks host connectivity and publishes
// KindConnectivityRegained when the device comes back online. It also
// answers the outbox's connectivity check.
type NetworkMonitor struct {
	bus *Bus

	mu        sync.Mutex
	connected bool
}

func NewNetworkMonitor(bus *Bus, connected bool) *NetworkMonitor {
	return &NetworkMonitor{bus: bus, connected: connected}
}

// Report records connectivity. Only a change from disconnected to connected
// publishes a signal; repeated connected reports do not.
func (n *NetworkMonitor) Report(ctx context.Context, connected bool) (bool, error) {
	n.mu.Lock()
	prev := n.connected
	n.connected = connected
	n.mu.Unlock()

	if !connected || prev {
		return false, nil
	}
	if err := n.bus.Publish(ctx, KindConnectivityRegained); err != nil {
		return false, err
	}
	return true, nil
}

func (n *NetworkMonitor) Connected(context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}
