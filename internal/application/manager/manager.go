package manager

// Composition root for agents. Everything is injected; there is no
// package-level state, so test runs never share classifiers or sizers.

import (
	"github.com/davidrc/gapscalp/internal/ports"
	"github.com/davidrc/gapscalp/internal/risk"
	"github.com/davidrc/gapscalp/internal/strategy"
)

// Manager wires a feed, a regime classifier and a shared sizer into the
// configured agents and propagates account-value updates to all of them.
type Manager struct {
	sizer  *risk.Sizer
	agents []strategy.Agent
}

// New builds the default agent roster (currently only mike).
func New(feed ports.OptionsFeed, regime ports.RegimeClassifier, sizer *risk.Sizer) *Manager {
	return &Manager{
		sizer: sizer,
		agents: []strategy.Agent{
			strategy.NewMike(feed, regime, sizer),
		},
	}
}

// Agent returns the agent with the given name, or nil.
func (m *Manager) Agent(name string) strategy.Agent {
	for _, a := range m.agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Agents returns the full roster.
func (m *Manager) Agents() []strategy.Agent {
	return m.agents
}

// UpdateAccountValue propagates post-trade equity to the shared sizer.
func (m *Manager) UpdateAccountValue(v float64) {
	m.sizer.UpdateAccountValue(v)
}
