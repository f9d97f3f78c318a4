package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/apsviz/run-supervisor/internal/cluster"
	"github.com/apsviz/run-supervisor/internal/jobtemplate"
	"github.com/apsviz/run-supervisor/internal/run"
	"github.com/apsviz/run-supervisor/internal/stage"
)

// appendFragment returns what prov would become after appending fragment,
// without mutating anything. Callers persist this value before committing
// it to the run, so a failed status-store write never leaves the run's
// in-memory provenance ahead of the store.
func appendFragment(prov, fragment string) string {
	if prov == "" {
		return fragment
	}
	return prov + ", " + fragment
}

// evaluateRun dispatches one run for one tick: finalize on Complete,
// schedule cleanup on Error, or run the stage handler. It reports whether
// the run changed state this tick and whether it should be removed from
// the active table.
func (s *Supervisor) evaluateRun(ctx context.Context, r *run.Run) (activity bool, remove bool) {
	switch r.Stage {
	case run.Complete:
		return s.finalizeGuarded(ctx, r)
	case run.Error:
		return s.scheduleCleanupGuarded(ctx, r), false
	default:
		return s.runStageHandlerGuarded(ctx, r), false
	}
}

// finalizeGuarded is the first exception guard: any failure here logs,
// leaves the run in place, and moves on to the next run instead of
// propagating.
func (s *Supervisor) finalizeGuarded(ctx context.Context, r *run.Run) (activity bool, remove bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error(fmt.Errorf("%v", rec), "panic finalizing run", "run", r.ID)
			activity, remove = false, false
		}
	}()

	newProv := appendFragment(r.Provenance, "Run complete")
	if err := s.store.UpdateStatus(ctx, r.ID, newProv); err != nil {
		s.log.Error(err, "failed to persist final status", "run", r.ID)
		return false, false
	}
	r.Provenance = newProv

	if !r.HasError() {
		s.notifier.Notify(ctx, r.ID, "completed successfully.", r.Context.InstanceName)
	} else {
		s.notifier.Notify(ctx, r.ID, fmt.Sprintf("completed unsuccessfully.\nRun provenance: %s.", r.Provenance), r.Context.InstanceName)
	}
	return true, true
}

// scheduleCleanupGuarded is the Error pseudo-stage dispatch: it
// unconditionally redirects the next tick's evaluation to
// FinalStaging/New, so cleanup always runs before the run leaves the table.
func (s *Supervisor) scheduleCleanupGuarded(ctx context.Context, r *run.Run) (activity bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error(fmt.Errorf("%v", rec), "panic scheduling cleanup", "run", r.ID)
			activity = false
		}
	}()

	s.log.Info("error detected, scheduling cleanup", "run", r.ID)
	newProv := appendFragment(r.Provenance, "Error detected")
	if err := s.store.UpdateStatus(ctx, r.ID, newProv); err != nil {
		s.log.Error(err, "failed to persist error status", "run", r.ID)
		return false
	}
	r.Provenance = newProv
	r.Stage = run.FinalStaging
	r.StageStatus = run.StatusNew
	return true
}

// runStageHandlerGuarded is the second exception guard: any failure from
// the stage handler attempts a best-effort job delete, appends "Run
// handler error detected", persists it, and forces the run to Error/Failed
// so the loop's liveness never depends on a single poisoned run.
func (s *Supervisor) runStageHandlerGuarded(ctx context.Context, r *run.Run) (activity bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.handlerFailure(ctx, r, fmt.Errorf("panic: %v", rec))
			activity = true
		}
	}()

	desc, err := s.catalog.Get(r.Stage)
	if err != nil {
		s.handlerFailure(ctx, r, err)
		return true
	}

	switch r.StageStatus {
	case run.StatusNew:
		ok, err := s.branchNew(ctx, r, desc)
		if err != nil {
			s.handlerFailure(ctx, r, err)
			return true
		}
		return ok
	case run.StatusRunning:
		ok, err := s.branchRunning(ctx, r, desc)
		if err != nil {
			s.handlerFailure(ctx, r, err)
			return true
		}
		return ok
	default:
		return false
	}
}

// handlerFailure implements the second guard's recovery action.
func (s *Supervisor) handlerFailure(ctx context.Context, r *run.Run, cause error) {
	s.log.Error(cause, "run handler error", "run", r.ID, "stage", r.Stage)
	if r.JobBinding != nil {
		if _, err := s.driver.Delete(ctx, r.JobBinding.Handle); err != nil {
			s.log.Error(err, "best-effort job delete failed", "run", r.ID)
		}
		r.JobBinding = nil
	}

	newProv := appendFragment(r.Provenance, "Run handler error detected")
	if err := s.store.UpdateStatus(ctx, r.ID, newProv); err != nil {
		s.log.Error(err, "failed to persist handler error status", "run", r.ID)
	}
	r.Provenance = newProv
	r.Stage = run.Error
	r.StageStatus = run.StatusFailed
}

// branchNew handles a stage in the New status: build params, bind the job
// template, submit it, and transition to Running.
func (s *Supervisor) branchNew(ctx context.Context, r *run.Run, desc stage.Descriptor) (bool, error) {
	tmpl, err := s.cfg.StageTemplate(desc.TemplateKey)
	if err != nil {
		return false, err
	}

	job := jobtemplate.Bind(desc, tmpl, r)
	handle, err := s.driver.Create(ctx, job)
	if err != nil {
		return false, fmt.Errorf("submitting job for stage %s: %w", desc.Name, err)
	}

	newProv := appendFragment(r.Provenance, desc.RunningMarker)
	if err := s.store.UpdateStatus(ctx, r.ID, newProv); err != nil {
		return false, fmt.Errorf("persisting %s running status: %w", desc.Name, err)
	}

	r.JobBinding = &run.JobBinding{Handle: handle, Job: job}
	r.StageStatus = run.StatusRunning
	r.Provenance = newProv
	return true, nil
}

// branchRunning handles a stage in the Running status: inspect the
// outstanding job and transition on completion or failure.
func (s *Supervisor) branchRunning(ctx context.Context, r *run.Run, desc stage.Descriptor) (bool, error) {
	if r.JobBinding == nil {
		return false, fmt.Errorf("stage %s is Running with no job binding", desc.Name)
	}

	activity, condition, err := s.driver.Inspect(ctx, r.JobBinding.Handle)
	if err != nil {
		return false, fmt.Errorf("inspecting job for stage %s: %w", desc.Name, err)
	}

	failed := strings.HasPrefix(condition, "Failed")

	if activity == cluster.ActivityInactive && !failed {
		if _, err := s.driver.Delete(ctx, r.JobBinding.Handle); err != nil {
			return false, fmt.Errorf("deleting completed job for stage %s: %w", desc.Name, err)
		}

		newProv := appendFragment(r.Provenance, desc.CompleteMarker)
		if err := s.store.UpdateStatus(ctx, r.ID, newProv); err != nil {
			return false, fmt.Errorf("persisting %s complete status: %w", desc.Name, err)
		}

		r.JobBinding = nil
		r.Stage = desc.Successor
		r.StageStatus = run.StatusNew
		r.Provenance = newProv
		return true, nil
	}

	if failed {
		if _, err := s.driver.Delete(ctx, r.JobBinding.Handle); err != nil {
			s.log.Error(err, "failed to delete failed job", "run", r.ID, "stage", desc.Name)
		}
		r.JobBinding = nil

		// FinalStaging failing on its own job must not re-enter Error, or
		// cleanup would loop forever. It goes straight to Complete; the
		// warning in the notification is the only record of the failure.
		if desc.Name == run.FinalStaging {
			s.notifier.Notify(ctx, r.ID, "failed in "+desc.Slug+". Warning: Intermediate files may not have been removed.", r.Context.InstanceName)
			r.Stage = run.Complete
			return true, nil
		}

		s.notifier.Notify(ctx, r.ID, "failed in "+desc.Slug+".", r.Context.InstanceName)
		r.Stage = run.Error
		r.StageStatus = run.StatusFailed
		return true, nil
	}

	// still active, no transition
	return false, nil
}
