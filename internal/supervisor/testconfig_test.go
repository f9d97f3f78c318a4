package supervisor

import (
	"time"

	"github.com/apsviz/run-supervisor/internal/config"
)

func testConfig() *config.Config {
	stageNames := []string{"Staging", "ObsMod", "GeoTiff", "Mbtiles0_9", "Mbtiles10", "Mbtiles11", "Mbtiles12", "LoadGeoServer", "FinalStaging"}
	stages := make(map[string]config.StageTemplate, len(stageNames))
	for _, name := range stageNames {
		stages[name] = config.StageTemplate{
			JobName:        name + "-",
			DataVolumeName: name + "-data-",
			SSHVolumeName:  name + "-ssh-",
			CommandLine:    []string{"python3", "main.py"},
			DataMountPath:  "/data",
			SubPath:        "/" + name,
			Image:          "apsviz/" + name + ":latest",
			Namespace:      "apsviz",
		}
	}
	return &config.Config{
		Stages:           stages,
		PollShortSleep:   1 * time.Millisecond,
		PollLongSleep:    10 * time.Millisecond,
		GeoTiffSuccessor: "Mbtiles0_9",
	}
}
