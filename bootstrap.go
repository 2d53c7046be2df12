package session

import (
	"context"
	"sync"
)

// Bootstrapper restores the session once at process start. Repeated Run
// calls are no-ops, and Loading is always cleared on the way out so
// guards never stall waiting for bootstrap.
type Bootstrapper struct {
	manager *Manager
	logger  Logger
	once    sync.Once
}

func NewBootstrapper(manager *Manager) *Bootstrapper {
	return &Bootstrapper{
		manager: manager,
		logger:  defLogger{},
	}
}

// WithLogger replaces the bootstrap logger
func (b *Bootstrapper) WithLogger(logger Logger) *Bootstrapper {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Run restores persisted session state. It performs no network calls:
// upgrading a token-only session to a verified one is the guard
// integration's job.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.once.Do(func() {
		b.manager.setLoading(true)
		defer b.manager.setLoading(false)

		b.manager.RestoreFromStore(ctx)

		snap := b.manager.Snapshot()
		switch {
		case snap.Authenticated:
			b.logger.Info("restored session for %s (%s)", snap.User.Email, snap.User.Role)
		case snap.Tokens.HasAccess():
			b.logger.Info("restored token-only session, pending verification")
		default:
			b.logger.Debug("no persisted session found")
		}
	})
}
