// Package supervisor holds the reconciliation loop and run state machine:
// it admits runs from the catalog, drives each through the stage pipeline
// by launching and polling cluster jobs, and guarantees a cleanup pass on
// failure. The active run table is instance-owned; stage behavior comes
// from the stage catalog rather than per-stage branching here.
package supervisor

import (
	"github.com/go-logr/logr"

	"github.com/apsviz/run-supervisor/internal/cluster"
	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/notify"
	"github.com/apsviz/run-supervisor/internal/run"
	"github.com/apsviz/run-supervisor/internal/stage"
	"github.com/apsviz/run-supervisor/internal/store"
)

// Supervisor owns the active run table and the adapters the state machine
// acts through. No other component mutates the table.
type Supervisor struct {
	store    store.Store
	driver   cluster.Driver
	notifier notify.Notifier
	catalog  *stage.Catalog
	cfg      *config.Config
	log      logr.Logger

	active    map[string]*run.Run
	order     []string
	idleTicks int
}

// New builds a Supervisor. The active table starts empty; runs enter it
// only through admission.
func New(st store.Store, driver cluster.Driver, notifier notify.Notifier, catalog *stage.Catalog, cfg *config.Config, log logr.Logger) *Supervisor {
	return &Supervisor{
		store:    st,
		driver:   driver,
		notifier: notifier,
		catalog:  catalog,
		cfg:      cfg,
		log:      log.WithName("supervisor"),
		active:   make(map[string]*run.Run),
	}
}

// ActiveCount reports the number of runs currently in the active table.
// Exported for tests and operational introspection only.
func (s *Supervisor) ActiveCount() int {
	return len(s.active)
}
