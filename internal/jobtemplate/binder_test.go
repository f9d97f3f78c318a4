package jobtemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/run"
	"github.com/apsviz/run-supervisor/internal/stage"
)

func buildParamsStub(r *run.Run, tmpl config.StageTemplate) []string {
	return []string{"--foo", "bar"}
}

func TestBindSuffixesNamesAndExtendsCommandLine(t *testing.T) {
	desc := stage.Descriptor{
		Name:             run.ObsMod,
		Slug:             "obs-mod",
		BuildParams:      buildParamsStub,
		ExtendOutputPath: false,
	}
	tmpl := config.StageTemplate{
		JobName:        "obs-mod-",
		DataVolumeName: "obs-mod-data-",
		SSHVolumeName:  "obs-mod-ssh-",
		CommandLine:    []string{"python3", "main.py"},
		DataMountPath:  "/data",
		Image:          "apsviz/obs-mod:latest",
		Namespace:      "apsviz",
	}
	r := &run.Run{ID: "RUN42"}

	job := Bind(desc, tmpl, r)

	assert.Equal(t, "obs-mod-run42", job.Name)
	assert.Equal(t, "apsviz", job.Namespace)
	container := job.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "apsviz/obs-mod:latest", container.Image)
	assert.Equal(t, []string{"python3", "main.py", "--foo", "bar"}, container.Command)
	assert.Equal(t, "obs-mod-data-run42", container.VolumeMounts[0].Name)
	assert.Equal(t, "obs-mod-ssh-run42", container.VolumeMounts[1].Name)

	// original template is untouched
	assert.Equal(t, []string{"python3", "main.py"}, tmpl.CommandLine)
}

func TestBindExtendsOutputPathWhenSet(t *testing.T) {
	desc := stage.Descriptor{
		Name:             run.Staging,
		Slug:             "staging",
		BuildParams:      buildParamsStub,
		ExtendOutputPath: true,
	}
	tmpl := config.StageTemplate{
		JobName:        "staging-",
		DataVolumeName: "staging-data-",
		SSHVolumeName:  "staging-ssh-",
		CommandLine:    []string{"python3", "main.py"},
		DataMountPath:  "/data",
		SubPath:        "/staging",
		AdditionalPath: "/extra",
	}
	r := &run.Run{ID: "99"}

	job := Bind(desc, tmpl, r)

	container := job.Spec.Template.Spec.Containers[0]
	assert.Equal(t, []string{"python3", "main.py", "--foo", "bar", "/data/99/staging/extra"}, container.Command)
}
