package stage

import (
	"strings"

	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/run"
)

// buildStagingParams builds Staging's command-line tail. The output
// directory argument's value is appended separately by the Job Template
// Binder, since Staging is the one stage with extend_output_path set.
func buildStagingParams(r *run.Run, tmpl config.StageTemplate) []string {
	return []string{"--inputURL", r.Context.DownloadURL, "--outputDir"}
}

// buildObsModParams rewrites the staging download URL into a dodsC access
// URL (fileServer -> dodsC, with /fort.63.nc appended) and builds ObsMod's
// full output/final directory arguments directly from the template, since
// ObsMod does not use the binder's extend_output_path rewrite.
func buildObsModParams(r *run.Run, tmpl config.StageTemplate) []string {
	accessURL := strings.ReplaceAll(r.Context.DownloadURL+"/fort.63.nc", "fileServer", "dodsC")
	outputDir := tmpl.DataMountPath + "/" + r.ID + tmpl.SubPath + tmpl.AdditionalPath
	finalDir := tmpl.DataMountPath + "/" + r.ID + "/final" + tmpl.AdditionalPath
	return []string{
		"--instanceId", r.ID,
		"--inputURL", accessURL,
		"--grid", r.Context.GridName,
		"--outputDIR", outputDir,
		"--finalDIR", finalDir,
	}
}

// buildMbtilesParams builds the shared output/final/input argument shape
// used by GeoTiff and every Mbtiles zoom-level stage.
func buildMbtilesParams(r *run.Run, tmpl config.StageTemplate) []string {
	outputDir := tmpl.DataMountPath + "/" + r.ID + tmpl.SubPath
	finalDir := tmpl.DataMountPath + "/" + r.ID + "/final" + tmpl.SubPath
	return []string{
		"--outputDIR", outputDir,
		"--finalDIR", finalDir,
		"--inputFile",
	}
}

// buildLoadGeoServerParams builds LoadGeoServer's single argument.
func buildLoadGeoServerParams(r *run.Run, tmpl config.StageTemplate) []string {
	return []string{"--instanceId", r.ID}
}

// buildFinalStagingParams builds the cleanup stage's input/output/tar
// arguments. Unlike Staging, the output directory here is not qualified by
// the run id: FinalStaging folds every run's final directory back into one
// shared tree.
func buildFinalStagingParams(r *run.Run, tmpl config.StageTemplate) []string {
	inputDir := tmpl.DataMountPath + "/" + r.ID + tmpl.SubPath
	outputDir := tmpl.DataMountPath + tmpl.SubPath
	return []string{
		"--inputDir", inputDir,
		"--outputDir", outputDir,
		"--tarMeta", r.ID,
	}
}
