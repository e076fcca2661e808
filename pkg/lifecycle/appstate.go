package lifecycle

import (
	"context"
	"fmt"
	"sync"
)

// AppState mirrors the host application's foreground state.
type AppState string

const (
	StateActive     AppState = "active"
	StateBackground AppState = "background"
	StateInactive   AppState = "inactive"
)

func ParseAppState(s string) (AppState, error) {
	switch st := AppState(s); st {
	case StateActive, StateBackground, StateInactive:
		return st, nil
	default:
		return "", fmt.Errorf("unknown app state %q", s)
	}
}

// AppStateMonitor publishes KindForeground whenever the app becomes active.
type AppStateMonitor struct {
	bus *Bus

	mu    sync.Mutex
	state AppState
}

func NewAppStateMonitor(bus *Bus, initial AppState) *AppStateMonitor {
	return &AppStateMonitor{bus: bus, state: initial}
}

// Report records the current state. It returns true when the report moved
// the app into the foreground and a signal was published.
func (m *AppStateMonitor) Report(ctx context.Context, state AppState) (bool, error) {
	m.mu.Lock()
	prev := m.state
	m.state = state
	m.mu.Unlock()

	if state != StateActive || prev == StateActive {
		return false, nil
	}
	if err := m.bus.Publish(ctx, KindForeground); err != nil {
		return false, err
	}
	return true, nil
}

func (m *AppStateMonitor) State() AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
