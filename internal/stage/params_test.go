package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/run"
)

func testRun() *run.Run {
	return &run.Run{
		ID: "42",
		Context: run.Context{
			DownloadURL:  "http://example.org/thredds/fileServer/data",
			GridName:     "g1",
			InstanceName: "inst-A",
		},
	}
}

func TestBuildStagingParams(t *testing.T) {
	params := buildStagingParams(testRun(), config.StageTemplate{})
	assert.Equal(t, []string{"--inputURL", "http://example.org/thredds/fileServer/data", "--outputDir"}, params)
}

func TestBuildObsModParamsRewritesURL(t *testing.T) {
	tmpl := config.StageTemplate{DataMountPath: "/data", SubPath: "/run", AdditionalPath: "/extra"}
	params := buildObsModParams(testRun(), tmpl)

	assert.Equal(t, []string{
		"--instanceId", "42",
		"--inputURL", "http://example.org/thredds/dodsC/data/fort.63.nc",
		"--grid", "g1",
		"--outputDIR", "/data/42/run/extra",
		"--finalDIR", "/data/42/final/extra",
	}, params)
}

func TestBuildMbtilesParams(t *testing.T) {
	tmpl := config.StageTemplate{DataMountPath: "/data", SubPath: "/tiles"}
	params := buildMbtilesParams(testRun(), tmpl)

	assert.Equal(t, []string{
		"--outputDIR", "/data/42/tiles",
		"--finalDIR", "/data/42/final/tiles",
		"--inputFile",
	}, params)
}

func TestBuildLoadGeoServerParams(t *testing.T) {
	params := buildLoadGeoServerParams(testRun(), config.StageTemplate{})
	assert.Equal(t, []string{"--instanceId", "42"}, params)
}

func TestBuildFinalStagingParams(t *testing.T) {
	tmpl := config.StageTemplate{DataMountPath: "/data", SubPath: "/run"}
	params := buildFinalStagingParams(testRun(), tmpl)

	assert.Equal(t, []string{
		"--inputDir", "/data/42/run",
		"--outputDir", "/data/run",
		"--tarMeta", "42",
	}, params)
}
