// Package run holds the per-run record the reconciliation loop advances:
// a fixed set of fields plus a stage-local job binding.
package run

import (
	"strings"

	batchv1 "k8s.io/api/batch/v1"

	"github.com/apsviz/run-supervisor/internal/cluster"
)

// Stage is one step of the fixed pipeline. Complete and Error are sentinel
// stages: Complete marks a run for removal from the active table, Error
// unconditionally redirects the next admission to FinalStaging/New.
type Stage string

const (
	Staging       Stage = "Staging"
	ObsMod        Stage = "ObsMod"
	GeoTiff       Stage = "GeoTiff"
	Mbtiles0_9    Stage = "Mbtiles0_9"
	Mbtiles10     Stage = "Mbtiles10"
	Mbtiles11     Stage = "Mbtiles11"
	Mbtiles12     Stage = "Mbtiles12"
	LoadGeoServer Stage = "LoadGeoServer"
	FinalStaging  Stage = "FinalStaging"
	Complete      Stage = "Complete"
	Error         Stage = "Error"
)

// Status pairs with Stage to form the run's full state. Only the
// (Stage, Status) pair is authoritative; there is no separate numeric
// status.
type Status string

const (
	StatusNew     Status = "New"
	StatusRunning Status = "Running"
	StatusFailed  Status = "Failed"
)

// Context holds the values bound at admission time. They never change for
// the life of the run.
type Context struct {
	DownloadURL  string
	GridName     string
	InstanceName string
}

// JobBinding is the stage-local record created when a stage enters
// Running: the scheduler handle to poll and delete, and the job spec that
// produced it. It is overwritten (not merged) on every stage entry, which
// is what enforces at-most-one outstanding job per run.
type JobBinding struct {
	Handle cluster.JobHandle
	Job    *batchv1.Job
}

// Run is the unit of work the reconciliation loop advances. It is mutated
// only by the loop holding exclusive access to its table entry.
type Run struct {
	ID          string
	Stage       Stage
	StageStatus Status
	Provenance  string
	Context     Context
	JobBinding  *JobBinding
}

// New constructs a freshly admitted run in the Staging/New state with its
// initial provenance fragment.
func New(id string, ctx Context) *Run {
	return &Run{
		ID:          id,
		Stage:       Staging,
		StageStatus: StatusNew,
		Provenance:  "New, Run accepted",
		Context:     ctx,
	}
}

// HasError reports whether the provenance string classifies the run as
// unsuccessful: the presence of "Error" anywhere in it.
func (r *Run) HasError() bool {
	return strings.Contains(r.Provenance, "Error")
}
