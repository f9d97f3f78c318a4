package supervisor

import (
	"context"

	"github.com/apsviz/run-supervisor/internal/run"
)

const (
	keyDownloadURL = "downloadurl"
	keyGridName    = "adcirc.gridname"
	keyInstance    = "instancename"
)

// admit pulls admitted runs from the state store and folds each into the
// active table. It never raises into the reconciliation loop: every
// failure is logged and the tick continues.
func (s *Supervisor) admit(ctx context.Context) {
	admitted, err := s.store.ListAdmitted(ctx)
	if err != nil {
		s.log.Error(err, "failed to list admitted runs")
		return
	}

	for _, a := range admitted {
		// The store may return a row again on a later tick; dedupe
		// against the active table.
		if _, exists := s.active[a.RunID]; exists {
			continue
		}

		downloadURL := a.RunData[keyDownloadURL]
		gridName := a.RunData[keyGridName]
		instanceName := a.RunData[keyInstance]

		if downloadURL == "" || gridName == "" || instanceName == "" {
			if err := s.store.UpdateStatus(ctx, a.RunID, "Error - Lacks the required run properties."); err != nil {
				s.log.Error(err, "failed to persist admission rejection", "run", a.RunID)
			}
			s.notifier.Notify(ctx, a.RunID, "lacked the required run properties.", instanceName)
			continue
		}

		newRun := run.New(a.RunID, run.Context{
			DownloadURL:  downloadURL,
			GridName:     gridName,
			InstanceName: instanceName,
		})

		if err := s.store.UpdateStatus(ctx, a.RunID, newRun.Provenance); err != nil {
			s.log.Error(err, "failed to persist admission", "run", a.RunID)
			continue
		}

		s.active[a.RunID] = newRun
		s.order = append(s.order, a.RunID)
		s.notifier.Notify(ctx, a.RunID, "accepted.", instanceName)
	}
}
