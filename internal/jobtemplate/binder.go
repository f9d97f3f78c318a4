// Package jobtemplate materializes a concrete batch job spec from a stage's
// static template and a run's bound context: clone the template, suffix
// the job and volume names with the run id, extend the command line, and
// optionally rewrite the sub-path to embed the run id.
package jobtemplate

import (
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/run"
	"github.com/apsviz/run-supervisor/internal/stage"
)

var backoffLimit = int32(0)

// Bind produces the job spec for one stage's execution of a run. The
// returned Job is not yet submitted; the caller hands it to the Cluster
// Driver Adapter.
func Bind(desc stage.Descriptor, tmpl config.StageTemplate, r *run.Run) *batchv1.Job {
	suffix := strings.ToLower(r.ID)
	jobName := tmpl.JobName + suffix
	dataVolumeName := tmpl.DataVolumeName + suffix
	sshVolumeName := tmpl.SSHVolumeName + suffix

	subPath := tmpl.SubPath
	commandLine := append([]string(nil), tmpl.CommandLine...)
	commandLine = append(commandLine, desc.BuildParams(r, tmpl)...)
	if desc.ExtendOutputPath {
		subPath = "/" + r.ID + subPath
		commandLine = append(commandLine, tmpl.DataMountPath+subPath+tmpl.AdditionalPath)
	}

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: tmpl.Namespace,
			Labels: map[string]string{
				"app.kubernetes.io/component": "run-supervisor",
				"run-supervisor/run-id":       suffix,
				"run-supervisor/stage":        string(desc.Name),
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"run-supervisor/run-id": suffix,
						"run-supervisor/stage":  string(desc.Name),
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:    jobName,
							Image:   tmpl.Image,
							Command: commandLine,
							VolumeMounts: []corev1.VolumeMount{
								{Name: dataVolumeName, MountPath: tmpl.DataMountPath},
								{Name: sshVolumeName, MountPath: "/ssh-keys", ReadOnly: true},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: dataVolumeName,
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: dataVolumeName,
								},
							},
						},
						{
							Name: sshVolumeName,
							VolumeSource: corev1.VolumeSource{
								Secret: &corev1.SecretVolumeSource{
									SecretName: sshVolumeName,
								},
							},
						},
					},
				},
			},
		},
	}

	return job
}
