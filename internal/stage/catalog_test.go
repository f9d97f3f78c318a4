package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/run"
)

func TestNewCatalogRejectsUnknownGeoTiffSuccessor(t *testing.T) {
	cfg := &config.Config{GeoTiffSuccessor: "Mbtiles99"}
	_, err := NewCatalog(cfg)
	assert.Error(t, err)
}

func TestCatalogLinearSuccession(t *testing.T) {
	cfg := &config.Config{GeoTiffSuccessor: "Mbtiles0_9"}
	cat, err := NewCatalog(cfg)
	require.NoError(t, err)

	expected := []struct {
		stage     run.Stage
		successor run.Stage
	}{
		{run.Staging, run.ObsMod},
		{run.ObsMod, run.GeoTiff},
		{run.GeoTiff, run.Mbtiles0_9},
		{run.Mbtiles0_9, run.LoadGeoServer},
		{run.LoadGeoServer, run.FinalStaging},
		{run.FinalStaging, run.Complete},
	}

	for _, e := range expected {
		d, err := cat.Get(e.stage)
		require.NoError(t, err)
		assert.Equal(t, e.successor, d.Successor, "successor for %s", e.stage)
	}
}

func TestCatalogGeoTiffSuccessorConfigurable(t *testing.T) {
	cfg := &config.Config{GeoTiffSuccessor: "Mbtiles11"}
	cat, err := NewCatalog(cfg)
	require.NoError(t, err)

	d, err := cat.Get(run.GeoTiff)
	require.NoError(t, err)
	assert.Equal(t, run.Mbtiles11, d.Successor)

	// every mbtiles branch independently advances to LoadGeoServer
	for _, mb := range []run.Stage{run.Mbtiles0_9, run.Mbtiles10, run.Mbtiles11, run.Mbtiles12} {
		d, err := cat.Get(mb)
		require.NoError(t, err)
		assert.Equal(t, run.LoadGeoServer, d.Successor)
	}
}

func TestCatalogGetUnknownStage(t *testing.T) {
	cfg := &config.Config{GeoTiffSuccessor: "Mbtiles0_9"}
	cat, err := NewCatalog(cfg)
	require.NoError(t, err)

	_, err = cat.Get(run.Stage("NotAStage"))
	assert.Error(t, err)
}
