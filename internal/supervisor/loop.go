package supervisor

import (
	"context"
	"time"
)

// Run executes the reconciliation loop until ctx is cancelled: admit,
// advance, clean up, sleep. It never returns except on context
// cancellation; no per-run failure stops it.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.admit(ctx)
		activity := s.tick(ctx)
		sleep := s.nextSleep(activity)

		s.log.V(1).Info("tick complete", "active", len(s.active), "activity", activity, "sleep", sleep)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// tick evaluates every run currently in the active table once, in table
// order, and reports whether any run changed state. Completed runs are
// collected into a side buffer and removed only after the full pass, so
// removal never mutates the table being iterated.
func (s *Supervisor) tick(ctx context.Context) bool {
	anyActivity := false
	var toRemove []string

	for _, id := range s.order {
		r, ok := s.active[id]
		if !ok {
			continue
		}

		activity, remove := s.evaluateRun(ctx, r)
		if activity {
			anyActivity = true
		}
		if remove {
			toRemove = append(toRemove, id)
		}
	}

	if len(toRemove) > 0 {
		s.removeRuns(toRemove)
	}

	return anyActivity
}

func (s *Supervisor) removeRuns(ids []string) {
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
		delete(s.active, id)
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if _, gone := remove[id]; !gone {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

// nextSleep implements idle backoff: ten consecutive idle ticks switch
// to the long poll interval, pinned there
// until activity resumes, at which point the very next tick sleeps short
// again.
func (s *Supervisor) nextSleep(activity bool) time.Duration {
	if activity {
		s.idleTicks = 0
	} else {
		s.idleTicks++
	}

	if s.idleTicks >= 10 {
		s.idleTicks = 9
		return s.cfg.PollLongSleep
	}
	return s.cfg.PollShortSleep
}
