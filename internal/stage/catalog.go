// Package stage declares the pipeline as a static table of stages, each
// with its ordering, the provenance fragments it contributes, its
// successor on success, and the function that builds its job's
// command-line arguments.
package stage

import (
	"fmt"

	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/run"
)

// Descriptor is one entry of the stage catalog. BuildParams is pure: given
// the run and its resolved job template, it returns the extra command-line
// arguments the Job Template Binder appends.
type Descriptor struct {
	Name             run.Stage
	Slug             string
	TemplateKey      string
	RunningMarker    string
	CompleteMarker   string
	Successor        run.Stage
	ExtendOutputPath bool
	BuildParams      func(r *run.Run, tmpl config.StageTemplate) []string
}

// Catalog is the ordered, static set of stage descriptors.
type Catalog struct {
	descriptors map[run.Stage]Descriptor
}

// NewCatalog builds the catalog. The stage following GeoTiff on success is
// configuration-driven: cfg.GeoTiffSuccessor names one of the Mbtiles
// stages (see config.Config.GeoTiffSuccessor).
func NewCatalog(cfg *config.Config) (*Catalog, error) {
	geoTiffSuccessor := run.Stage(cfg.GeoTiffSuccessor)
	switch geoTiffSuccessor {
	case run.Mbtiles0_9, run.Mbtiles10, run.Mbtiles11, run.Mbtiles12:
	default:
		return nil, fmt.Errorf("config: GEOTIFF_SUCCESSOR %q is not a known mbtiles stage", cfg.GeoTiffSuccessor)
	}

	mbtilesDescriptor := func(name run.Stage, slug, templateKey string) Descriptor {
		return Descriptor{
			Name:             name,
			Slug:             slug,
			TemplateKey:      templateKey,
			RunningMarker:    string(name) + " running",
			CompleteMarker:   string(name) + " complete",
			Successor:        run.LoadGeoServer,
			ExtendOutputPath: false,
			BuildParams:      buildMbtilesParams,
		}
	}

	descriptors := map[run.Stage]Descriptor{
		run.Staging: {
			Name:             run.Staging,
			Slug:             "staging",
			TemplateKey:      "Staging",
			RunningMarker:    "Staging running",
			CompleteMarker:   "Staging complete",
			Successor:        run.ObsMod,
			ExtendOutputPath: true,
			BuildParams:      buildStagingParams,
		},
		run.ObsMod: {
			Name:             run.ObsMod,
			Slug:             "obs-mod",
			TemplateKey:      "ObsMod",
			RunningMarker:    "ObsMod running",
			CompleteMarker:   "ObsMod complete",
			Successor:        run.GeoTiff,
			ExtendOutputPath: false,
			BuildParams:      buildObsModParams,
		},
		run.GeoTiff: {
			Name:             run.GeoTiff,
			Slug:             "run-geo-tiff",
			TemplateKey:      "GeoTiff",
			RunningMarker:    "GeoTiff running",
			CompleteMarker:   "GeoTiff complete",
			Successor:        geoTiffSuccessor,
			ExtendOutputPath: false,
			BuildParams:      buildMbtilesParams,
		},
		run.Mbtiles0_9:  mbtilesDescriptor(run.Mbtiles0_9, "compute-mbtiles-0-9", "Mbtiles0_9"),
		run.Mbtiles10:   mbtilesDescriptor(run.Mbtiles10, "compute-mbtiles-10", "Mbtiles10"),
		run.Mbtiles11:   mbtilesDescriptor(run.Mbtiles11, "compute-mbtiles-11", "Mbtiles11"),
		run.Mbtiles12:   mbtilesDescriptor(run.Mbtiles12, "compute-mbtiles-12", "Mbtiles12"),
		run.LoadGeoServer: {
			Name:             run.LoadGeoServer,
			Slug:             "load-geo-server",
			TemplateKey:      "LoadGeoServer",
			RunningMarker:    "LoadGeoServer running",
			CompleteMarker:   "LoadGeoServer complete",
			Successor:        run.FinalStaging,
			ExtendOutputPath: false,
			BuildParams:      buildLoadGeoServerParams,
		},
		run.FinalStaging: {
			Name:             run.FinalStaging,
			Slug:             "final-staging",
			TemplateKey:      "FinalStaging",
			RunningMarker:    "FinalStaging running",
			CompleteMarker:   "Final staging complete",
			Successor:        run.Complete,
			ExtendOutputPath: false,
			BuildParams:      buildFinalStagingParams,
		},
	}

	return &Catalog{descriptors: descriptors}, nil
}

// Get looks up a stage's descriptor. Complete and Error are sentinel stages
// handled directly by the reconciliation loop and are never present here.
func (c *Catalog) Get(name run.Stage) (Descriptor, error) {
	d, ok := c.descriptors[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("no stage descriptor for %q", name)
	}
	return d, nil
}
